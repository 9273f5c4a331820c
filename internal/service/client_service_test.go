package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"recontab/internal/domain"
	"recontab/internal/service"
	"recontab/mocks"
)

func TestClientService_Create_CanonicalNIF(t *testing.T) {
	repo := new(mocks.MockClientRepo)
	svc := service.NewClientService(repo, zap.NewNop())

	tenantID, userID := uuid.New(), uuid.New()
	repo.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.Client) bool {
		return c.NIF == "123456789" && c.Name == "Padaria Central" && c.TenantID == tenantID
	})).Return(nil)

	client, err := svc.Create(context.Background(), service.CreateClientInput{
		TenantID:  tenantID,
		CreatedBy: userID,
		NIF:       "PT 123 456 789",
		Name:      "  Padaria Central ",
	})

	require.NoError(t, err)
	assert.Equal(t, "123456789", client.NIF)
	assert.Equal(t, userID, client.CreatedBy)
	repo.AssertExpectations(t)
}

func TestClientService_Create_InvalidNIF(t *testing.T) {
	repo := new(mocks.MockClientRepo)
	svc := service.NewClientService(repo, zap.NewNop())

	for _, nif := range []string{"", "123456780", "12345", "ES12345678Z"} {
		_, err := svc.Create(context.Background(), service.CreateClientInput{TenantID: uuid.New(), NIF: nif, Name: "X"})
		assert.ErrorIs(t, err, domain.ErrInvalidNIF, nif)
	}
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestClientService_Create_Duplicate(t *testing.T) {
	repo := new(mocks.MockClientRepo)
	svc := service.NewClientService(repo, zap.NewNop())
	repo.On("Create", mock.Anything, mock.Anything).Return(domain.ErrDuplicateClientNIF)

	_, err := svc.Create(context.Background(), service.CreateClientInput{TenantID: uuid.New(), NIF: "501964843", Name: "Dup"})
	assert.ErrorIs(t, err, domain.ErrDuplicateClientNIF)
}

func TestClientService_GetAndList(t *testing.T) {
	repo := new(mocks.MockClientRepo)
	svc := service.NewClientService(repo, zap.NewNop())

	tenantID := uuid.New()
	client := domain.Client{ID: uuid.New(), TenantID: tenantID, NIF: "501964843", Name: "B"}
	repo.On("GetByID", mock.Anything, tenantID, client.ID).Return(&client, nil)
	repo.On("GetByID", mock.Anything, tenantID, mock.Anything).Return(nil, domain.ErrClientNotFound)
	repo.On("ListByTenant", mock.Anything, tenantID, 0, 20).Return([]domain.Client{client}, 1, nil)

	got, err := svc.GetByID(context.Background(), tenantID, client.ID)
	require.NoError(t, err)
	assert.Equal(t, "B", got.Name)

	_, err = svc.GetByID(context.Background(), tenantID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrClientNotFound)

	list, total, err := svc.List(context.Background(), tenantID, 0, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, list, 1)
}
