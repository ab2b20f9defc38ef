package handler

import (
	"net/http"

	"github.com/josh-kwaku/toko-backend/internal/auth"
	"github.com/josh-kwaku/toko-backend/internal/domain"
)

func actorFromRequest(r *http.Request) (domain.Actor, *AppError) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		return domain.Actor{}, ErrMissingToken
	}
	return actor, nil
}

func entityIDFromPath(r *http.Request, name string) (domain.EntityID, *AppError) {
	id, err := domain.ParseEntityID(r.PathValue(name))
	if err != nil {
		return domain.EntityID{}, ErrInvalidID
	}
	return id, nil
}
