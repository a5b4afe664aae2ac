package app

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/relabs-tech/restkit/core/backend"
	"github.com/relabs-tech/restkit/core/entity"
	"github.com/relabs-tech/restkit/core/logger"
	"github.com/relabs-tech/restkit/core/resource"
)

// createPasswordReset creates a password reset for the user with the email of
// the route. The reset is announced through the notifier, which is where a
// mailer picks it up.
func (a *App) createPasswordReset(w http.ResponseWriter, r *http.Request) {
	user, err := a.userByEmail(r, mux.Vars(r)["user_email"])
	if err != nil {
		backend.WriteError(w, r, err)
		return
	}
	reset, err := a.engine.Resource("password_resets").CreateOneBelongingToParent(r.Context(), "users", user.UUID(), map[string]interface{}{})
	if err != nil {
		backend.WriteError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Infoln("created password reset", reset.UUID(), "for user", user.UUID())
	w.WriteHeader(http.StatusNoContent)
}

// passwordReset returns the reset of the route if it belongs to the user with
// the email of the route
func (a *App) passwordReset(r *http.Request, tx *resource.Tx) (*entity.Entity, *entity.Entity, error) {
	vars := mux.Vars(r)
	user, err := a.userByEmail(r, vars["user_email"])
	if err != nil {
		return nil, nil, err
	}
	resets := a.engine.Resource("password_resets")
	var reset *entity.Entity
	if tx != nil {
		reset, err = resets.Load(r.Context(), tx, vars["uuid"])
	} else {
		reset, err = resets.GetOne(r.Context(), vars["uuid"])
	}
	if err != nil {
		return nil, nil, err
	}
	if reset.Get("user_uuid") != user.UUID() {
		return nil, nil, &resource.NotFoundError{}
	}
	return reset, user, nil
}

func (a *App) validatePasswordReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, _, err := a.passwordReset(r, nil); err != nil {
		w.WriteHeader(backend.StatusOf(r, err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

// decodePassword returns the validated password input of the request
func (a *App) decodePassword(r *http.Request) (map[string]interface{}, error) {
	input, err := backend.DecodeObject(r)
	if err != nil {
		return nil, err
	}
	fe, err := a.schemas.ValidateFields(input, passwordSchema)
	if err != nil {
		return nil, err
	}
	if fe != nil {
		return nil, &resource.ValidationError{Fields: fe}
	}
	return map[string]interface{}{"password": input["password"]}, nil
}

// setNewPassword sets the password and consumes the reset in one transaction
func (a *App) setNewPassword(w http.ResponseWriter, r *http.Request) {
	input, err := a.decodePassword(r)
	if err != nil {
		backend.WriteError(w, r, err)
		return
	}
	err = a.engine.Transaction(r.Context(), func(tx *resource.Tx) error {
		reset, user, err := a.passwordReset(r, tx)
		if err != nil {
			return err
		}
		if _, err := a.engine.Resource("users").UpdateInTx(r.Context(), tx, user.UUID(), input); err != nil {
			return err
		}
		return a.engine.Resource("password_resets").DeleteInTx(r.Context(), tx, reset.UUID())
	})
	if err != nil {
		backend.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// resetPassword sets the password of the user the reset was created for
func (a *App) resetPassword(w http.ResponseWriter, r *http.Request) {
	input, err := a.decodePassword(r)
	if err != nil {
		backend.WriteError(w, r, err)
		return
	}
	vars := mux.Vars(r)
	err = a.engine.Transaction(r.Context(), func(tx *resource.Tx) error {
		reset, err := a.engine.Resource("password_resets").Load(r.Context(), tx, vars["uuid"])
		if err != nil {
			return err
		}
		if entity.IsEmpty(reset.Get("user_id")) {
			return &resource.BadRequestError{Message: "Passwords can only be reset for users"}
		}
		users := a.engine.Resource("users")
		user, err := users.LoadByIDOrUUID(r.Context(), tx, reset.Get("user_id"))
		if err != nil {
			return err
		}
		if user.Get("email") != vars["user_email"] {
			return &resource.NotFoundError{}
		}
		_, err = users.UpdateInTx(r.Context(), tx, user.UUID(), input)
		return err
	})
	if err != nil {
		backend.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
