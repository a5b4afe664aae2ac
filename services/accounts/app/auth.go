package app

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/relabs-tech/restkit/core/access"
	"github.com/relabs-tech/restkit/core/backend"
	"github.com/relabs-tech/restkit/core/entity"
	"github.com/relabs-tech/restkit/core/logger"
	"github.com/relabs-tech/restkit/core/resource"
)

type authResponse struct {
	Token string                 `json:"token"`
	Data  map[string]interface{} `json:"data"`
}

type authError struct {
	Error string `json:"error"`
}

// authResponseFor returns the token with its claims and the user
func (a *App) authResponseFor(token *access.Token, user *entity.Entity) (*authResponse, error) {
	claims, err := a.issuer.Parse(token.AccessToken)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(claims)
	if err != nil {
		return nil, err
	}
	data := map[string]interface{}{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	data["user"] = user
	return &authResponse{Token: token.AccessToken, Data: data}, nil
}

// userByEmail returns the user with email, or a NotFoundError
func (a *App) userByEmail(r *http.Request, email string) (*entity.Entity, error) {
	users, err := a.engine.Resource("users").GetAll(r.Context(), []resource.Condition{{Field: "email", Operator: "=", Value: email}})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, &resource.NotFoundError{}
	}
	return users[0], nil
}

func (a *App) login(w http.ResponseWriter, r *http.Request) {
	rlog := logger.FromContext(r.Context())
	email, password, ok := r.BasicAuth()
	if !ok {
		w.Header().Set("WWW-Authenticate", `Basic realm="restkit"`)
		backend.WriteJSON(w, http.StatusUnauthorized, authError{Error: "invalid_credentials"})
		return
	}
	user, err := a.userByEmail(r, email)
	if err == nil && !checkPassword(user.Get("password"), password) {
		err = &resource.NotFoundError{}
	}
	if err != nil {
		var nf *resource.NotFoundError
		if !errors.As(err, &nf) {
			backend.WriteError(w, r, err)
			return
		}
		rlog.Infoln("failed login for", email)
		backend.WriteJSON(w, http.StatusUnauthorized, authError{Error: "invalid_credentials"})
		return
	}

	token, err := a.issuer.Issue(user.UUID(), nil)
	if err != nil {
		rlog.WithError(err).Errorln("Error 5001: cannot issue token")
		backend.WriteJSON(w, http.StatusInternalServerError, authError{Error: "could_not_create_token"})
		return
	}
	response, err := a.authResponseFor(token, user)
	if err != nil {
		backend.WriteError(w, r, err)
		return
	}
	backend.WriteJSON(w, http.StatusOK, response)
}

func (a *App) refresh(w http.ResponseWriter, r *http.Request) {
	token, err := a.issuer.Refresh(access.TokenFromRequest(r))
	if err != nil {
		backend.WriteJSON(w, http.StatusUnauthorized, authError{Error: "token_invalid"})
		return
	}
	user, err := a.engine.Resource("users").GetOne(r.Context(), access.IdentityFromContext(r.Context()).Subject)
	if err != nil {
		backend.WriteError(w, r, err)
		return
	}
	response, err := a.authResponseFor(token, user)
	if err != nil {
		backend.WriteError(w, r, err)
		return
	}
	backend.WriteJSON(w, http.StatusOK, response)
}

// register creates a user and logs it in. No user is created if the token
// cannot be issued.
func (a *App) register(w http.ResponseWriter, r *http.Request) {
	input, err := backend.DecodeObject(r)
	if err != nil {
		backend.WriteError(w, r, err)
		return
	}
	var response *authResponse
	err = a.engine.Transaction(r.Context(), func(tx *resource.Tx) error {
		user, err := a.engine.Resource("users").CreateInTx(r.Context(), tx, input)
		if err != nil {
			return err
		}
		token, err := a.issuer.Issue(user.UUID(), nil)
		if err != nil {
			return err
		}
		response, err = a.authResponseFor(token, user)
		return err
	})
	if err != nil {
		backend.WriteError(w, r, err)
		return
	}
	backend.WriteJSON(w, http.StatusCreated, response)
}
