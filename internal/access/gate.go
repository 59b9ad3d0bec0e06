// Package access authenticates callers and answers ownership questions
// about projects and bookings.  The ownership checks are pure functions of
// an Actor and an entity and never touch storage, so services evaluate
// them before opening a transaction.
package access

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Omvpatil/RealEstate/internal/config"
	"github.com/Omvpatil/RealEstate/internal/model"
	"github.com/Omvpatil/RealEstate/internal/repository"
	"github.com/Omvpatil/RealEstate/internal/utils"
)

// ErrUnauthenticated is returned for missing, malformed or expired tokens.
var ErrUnauthenticated = errors.New("unauthenticated")

// Principal is the verified identity carried by an access token.
type Principal struct {
	UserID uint64
	Role   model.Role
}

// Actor is a Principal resolved to its role profile.  Exactly one of
// BuilderID and CustomerID is non-zero.
type Actor struct {
	UserID     uint64
	Role       model.Role
	BuilderID  uint64
	CustomerID uint64
}

func (a Actor) IsBuilder() bool  { return a.Role == model.RoleBuilder && a.BuilderID != 0 }
func (a Actor) IsCustomer() bool { return a.Role == model.RoleCustomer && a.CustomerID != 0 }

// ProfileLookup resolves role profiles.  *repository.UserRepo satisfies it.
type ProfileLookup interface {
	BuilderByUser(ctx context.Context, userID uint64) (model.Builder, error)
	CustomerByUser(ctx context.Context, userID uint64) (model.Customer, error)
}

// Gate holds the auth configuration handed to it at construction.
type Gate struct {
	cfg      config.AuthConfig
	profiles ProfileLookup
}

func NewGate(cfg config.AuthConfig, profiles ProfileLookup) *Gate {
	return &Gate{cfg: cfg, profiles: profiles}
}

// IssueAccessToken signs a token for the user with the configured secret
// and TTL.
func (g *Gate) IssueAccessToken(userID uint64, role model.Role) (utils.AccessToken, error) {
	return utils.NewAccessToken(g.cfg.JWTSecret, userID, string(role), g.cfg.AccessTTLMin)
}

// Authenticate verifies a raw bearer token.
func (g *Gate) Authenticate(raw string) (Principal, error) {
	claims, err := utils.ParseAccessToken(g.cfg.JWTSecret, raw)
	if err != nil {
		return Principal{}, ErrUnauthenticated
	}
	id, err := claims.UserID()
	if err != nil || id == 0 {
		return Principal{}, ErrUnauthenticated
	}
	role := model.Role(claims.Role)
	if !role.Valid() {
		return Principal{}, ErrUnauthenticated
	}
	return Principal{UserID: id, Role: role}, nil
}

// Resolve loads the profile ID that ownership checks compare against.  A
// principal whose profile row is missing is Forbidden.
func (g *Gate) Resolve(ctx context.Context, p Principal) (Actor, error) {
	a := Actor{UserID: p.UserID, Role: p.Role}
	switch p.Role {
	case model.RoleBuilder:
		b, err := g.profiles.BuilderByUser(ctx, p.UserID)
		if err != nil {
			return Actor{}, profileErr(err)
		}
		a.BuilderID = b.ID
	case model.RoleCustomer:
		c, err := g.profiles.CustomerByUser(ctx, p.UserID)
		if err != nil {
			return Actor{}, profileErr(err)
		}
		a.CustomerID = c.ID
	default:
		return Actor{}, repository.ErrForbidden
	}
	return a, nil
}

func profileErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrForbidden.Wrap(errors.New("no profile for user"))
	}
	return fmt.Errorf("resolve profile: %w", err)
}

// RequireBuilder fails unless the actor is a builder.
func RequireBuilder(a Actor) error {
	if !a.IsBuilder() {
		return repository.ErrForbidden
	}
	return nil
}

// RequireCustomer fails unless the actor is a customer.
func RequireCustomer(a Actor) error {
	if !a.IsCustomer() {
		return repository.ErrForbidden
	}
	return nil
}

// RequireBuilderOwnsProject fails unless the actor is the builder that owns
// the project.
func RequireBuilderOwnsProject(a Actor, p model.Project) error {
	if !a.IsBuilder() || p.BuilderID != a.BuilderID {
		return repository.ErrForbidden
	}
	return nil
}

// RequireCustomerOwnsBooking fails unless the actor is the customer that
// owns the booking.
func RequireCustomerOwnsBooking(a Actor, b model.Booking) error {
	if !a.IsCustomer() || b.CustomerID != a.CustomerID {
		return repository.ErrForbidden
	}
	return nil
}

// RequireBookingParty passes for the booking's customer or for the builder
// of the project the booked unit belongs to.
func RequireBookingParty(a Actor, b model.Booking, p model.Project) error {
	if RequireCustomerOwnsBooking(a, b) == nil || RequireBuilderOwnsProject(a, p) == nil {
		return nil
	}
	return repository.ErrForbidden
}
