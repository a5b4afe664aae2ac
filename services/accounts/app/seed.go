package app

import (
	"context"
	"fmt"

	"github.com/relabs-tech/restkit/core/logger"
	"github.com/relabs-tech/restkit/core/resource"
)

var seedStates = []map[string]interface{}{
	{"name": "New South Wales", "short_name": "NSW"},
	{"name": "Australian Capital Territory", "short_name": "ACT"},
	{"name": "Northern Territory", "short_name": "NT"},
	{"name": "Queensland", "short_name": "QLD"},
	{"name": "South Australia", "short_name": "SA"},
	{"name": "Tasmania", "short_name": "TAS"},
	{"name": "Victoria", "short_name": "VIC"},
	{"name": "Western Australia", "short_name": "WA"},
}

var seedUser = map[string]interface{}{
	"first_name": "Default",
	"last_name":  "User",
	"email":      "default.user@domain.com",
	"password":   "Password1!",
	"phone":      "0412123123",
}

// Seed creates the states and the default user unless they exist already
func (a *App) Seed(ctx context.Context) error {
	rlog := logger.FromContext(ctx)
	states := a.engine.Resource("states")
	for _, state := range seedStates {
		created, err := seedOne(ctx, states, "short_name", state)
		if err != nil {
			return err
		}
		if created {
			rlog.Infoln("seeded state", state["short_name"])
		}
	}
	created, err := seedOne(ctx, a.engine.Resource("users"), "email", seedUser)
	if err != nil {
		return err
	}
	if created {
		rlog.Infoln("seeded user", seedUser["email"])
	}
	return nil
}

func seedOne(ctx context.Context, res *resource.Resource, key string, input map[string]interface{}) (bool, error) {
	existing, err := res.GetAll(ctx, []resource.Condition{{Field: key, Operator: "=", Value: input[key]}})
	if err != nil {
		return false, fmt.Errorf("cannot look up %s %v: %w", res.Type, input[key], err)
	}
	if len(existing) > 0 {
		return false, nil
	}
	if _, err := res.Create(ctx, input); err != nil {
		return false, fmt.Errorf("cannot seed %s %v: %w", res.Type, input[key], err)
	}
	return true, nil
}
