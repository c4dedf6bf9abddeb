package service

import (
	"context"

	"aquafarm/internal/model"
	"aquafarm/internal/repository"

	"github.com/google/uuid"
)

// Actor identifies the authenticated user for scope checks. Handlers build it
// from the JWT claims; services never look at HTTP concerns.
type Actor struct {
	UserID uuid.UUID
	Role   string
	FarmID *uuid.UUID // set for technicians and operators, nil for owners
}

// authorizeFarm decides whether actor may touch farmID. Owners are scoped
// through farm ownership, everyone else through their pinned farm. Any lookup
// failure denies: scope checks fail closed.
func authorizeFarm(ctx context.Context, farms repository.FarmRepository, actor Actor, farmID uuid.UUID) error {
	switch actor.Role {
	case model.RoleOwner:
		farm, err := farms.FindFarmByID(ctx, farmID)
		if err != nil || farm.OwnerID != actor.UserID {
			return ErrAccessDenied
		}
		return nil
	case model.RoleTechnician, model.RoleOperator:
		if actor.FarmID != nil && *actor.FarmID == farmID {
			return nil
		}
		return ErrAccessDenied
	default:
		return ErrAccessDenied
	}
}
