package access

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Omvpatil/RealEstate/internal/config"
	"github.com/Omvpatil/RealEstate/internal/model"
	"github.com/Omvpatil/RealEstate/internal/repository"
	"github.com/Omvpatil/RealEstate/internal/utils"
)

type fakeProfiles struct {
	builders  map[uint64]uint64
	customers map[uint64]uint64
}

func (f fakeProfiles) BuilderByUser(_ context.Context, userID uint64) (model.Builder, error) {
	id, ok := f.builders[userID]
	if !ok {
		return model.Builder{}, sql.ErrNoRows
	}
	return model.Builder{ID: id, UserID: userID}, nil
}

func (f fakeProfiles) CustomerByUser(_ context.Context, userID uint64) (model.Customer, error) {
	id, ok := f.customers[userID]
	if !ok {
		return model.Customer{}, sql.ErrNoRows
	}
	return model.Customer{ID: id, UserID: userID}, nil
}

func newTestGate() *Gate {
	return NewGate(config.AuthConfig{JWTSecret: "test-secret", AccessTTLMin: 15}, fakeProfiles{
		builders:  map[uint64]uint64{1: 10},
		customers: map[uint64]uint64{2: 20},
	})
}

func TestIssueAndResolve(t *testing.T) {
	g := newTestGate()
	ctx := context.Background()

	tok, err := g.IssueAccessToken(1, model.RoleBuilder)
	require.NoError(t, err)
	p, err := g.Authenticate(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, Principal{UserID: 1, Role: model.RoleBuilder}, p)

	a, err := g.Resolve(ctx, p)
	require.NoError(t, err)
	assert.True(t, a.IsBuilder())
	assert.False(t, a.IsCustomer())
	assert.Equal(t, uint64(10), a.BuilderID)

	tok, err = g.IssueAccessToken(2, model.RoleCustomer)
	require.NoError(t, err)
	p, err = g.Authenticate(tok.Token)
	require.NoError(t, err)
	a, err = g.Resolve(ctx, p)
	require.NoError(t, err)
	assert.True(t, a.IsCustomer())
	assert.Equal(t, uint64(20), a.CustomerID)
}

func TestAuthenticateRejects(t *testing.T) {
	g := newTestGate()

	_, err := g.Authenticate("not-a-token")
	require.ErrorIs(t, err, ErrUnauthenticated)

	other, err := utils.NewAccessToken("other-secret", 1, "builder", 5)
	require.NoError(t, err)
	_, err = g.Authenticate(other.Token)
	require.ErrorIs(t, err, ErrUnauthenticated)

	expired, err := utils.NewAccessToken("test-secret", 1, "builder", -1)
	require.NoError(t, err)
	_, err = g.Authenticate(expired.Token)
	require.ErrorIs(t, err, ErrUnauthenticated)

	admin, err := utils.NewAccessToken("test-secret", 1, "admin", 5)
	require.NoError(t, err)
	_, err = g.Authenticate(admin.Token)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestResolveWithoutProfileIsForbidden(t *testing.T) {
	g := newTestGate()
	_, err := g.Resolve(context.Background(), Principal{UserID: 2, Role: model.RoleBuilder})
	require.ErrorIs(t, err, repository.ErrForbidden)
	assert.Equal(t, repository.KindForbidden, repository.KindOf(err))
}

func TestOwnershipChecks(t *testing.T) {
	builder := Actor{UserID: 1, Role: model.RoleBuilder, BuilderID: 10}
	customer := Actor{UserID: 2, Role: model.RoleCustomer, CustomerID: 20}
	// a builder token whose profile was never resolved owns nothing
	unresolved := Actor{UserID: 3, Role: model.RoleBuilder}

	project := model.Project{ID: 5, BuilderID: 10}
	otherProject := model.Project{ID: 6, BuilderID: 11}
	booking := model.Booking{ID: 7, CustomerID: 20}
	otherBooking := model.Booking{ID: 8, CustomerID: 21}

	assert.NoError(t, RequireBuilder(builder))
	assert.ErrorIs(t, RequireBuilder(customer), repository.ErrForbidden)
	assert.ErrorIs(t, RequireBuilder(unresolved), repository.ErrForbidden)
	assert.NoError(t, RequireCustomer(customer))
	assert.ErrorIs(t, RequireCustomer(builder), repository.ErrForbidden)

	assert.NoError(t, RequireBuilderOwnsProject(builder, project))
	assert.ErrorIs(t, RequireBuilderOwnsProject(builder, otherProject), repository.ErrForbidden)
	assert.ErrorIs(t, RequireBuilderOwnsProject(customer, project), repository.ErrForbidden)

	assert.NoError(t, RequireCustomerOwnsBooking(customer, booking))
	assert.ErrorIs(t, RequireCustomerOwnsBooking(customer, otherBooking), repository.ErrForbidden)
	assert.ErrorIs(t, RequireCustomerOwnsBooking(builder, booking), repository.ErrForbidden)

	assert.NoError(t, RequireBookingParty(customer, booking, otherProject))
	assert.NoError(t, RequireBookingParty(builder, otherBooking, project))
	assert.ErrorIs(t, RequireBookingParty(builder, booking, otherProject), repository.ErrForbidden)
	assert.ErrorIs(t, RequireBookingParty(customer, otherBooking, project), repository.ErrForbidden)
}
