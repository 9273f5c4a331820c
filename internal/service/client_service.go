package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"recontab/internal/domain"
	"recontab/internal/port"
	"recontab/internal/reconcile"
)

// CreateClientInput is the DTO for registering a client.
type CreateClientInput struct {
	TenantID  uuid.UUID `json:"-"`
	CreatedBy uuid.UUID `json:"-"`
	NIF       string    `json:"nif" binding:"required"`
	Name      string    `json:"name" binding:"required,max=255"`
	Email     string    `json:"email" binding:"omitempty,email"`
}

// ClientService defines the client management contract.
type ClientService interface {
	Create(ctx context.Context, input CreateClientInput) (*domain.Client, error)
	GetByID(ctx context.Context, tenantID, clientID uuid.UUID) (*domain.Client, error)
	List(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]domain.Client, int, error)
}

type clientService struct {
	clientRepo port.ClientRepository
	log        *zap.Logger
}

// NewClientService creates a new ClientService implementation.
func NewClientService(clientRepo port.ClientRepository, log *zap.Logger) ClientService {
	return &clientService{clientRepo: clientRepo, log: log}
}

// Create stores a client under its canonical NIF. The NIF must be nine
// digits with a valid check digit.
func (s *clientService) Create(ctx context.Context, input CreateClientInput) (*domain.Client, error) {
	nif := reconcile.CoerceNIF(input.NIF)
	if nif.Value == "" || !reconcile.ValidNIF(nif.Value) {
		return nil, domain.ErrInvalidNIF
	}

	client := &domain.Client{
		TenantID:  input.TenantID,
		NIF:       nif.Value,
		Name:      strings.TrimSpace(input.Name),
		Email:     strings.TrimSpace(input.Email),
		CreatedBy: input.CreatedBy,
	}
	if err := s.clientRepo.Create(ctx, client); err != nil {
		return nil, fmt.Errorf("clientService.Create: %w", err)
	}
	s.log.Info("client created",
		zap.String("tenant_id", client.TenantID.String()),
		zap.String("client_id", client.ID.String()),
	)
	return client, nil
}

func (s *clientService) GetByID(ctx context.Context, tenantID, clientID uuid.UUID) (*domain.Client, error) {
	client, err := s.clientRepo.GetByID(ctx, tenantID, clientID)
	if err != nil {
		return nil, fmt.Errorf("clientService.GetByID: %w", err)
	}
	return client, nil
}

func (s *clientService) List(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]domain.Client, int, error) {
	clients, total, err := s.clientRepo.ListByTenant(ctx, tenantID, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("clientService.List: %w", err)
	}
	return clients, total, nil
}
