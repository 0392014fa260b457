package volunteers

import (
	"context"
	"errors"
)

var (
	ErrVolunteerNotFound = errors.New("volunteer not found")
	ErrEmployeeNotFound  = errors.New("employee not found")
)

// ServiceConfig carries defaults for lazily provisioned records.
type ServiceConfig struct {
	Company     string
	Designation string
}

// Service handles volunteer business logic.
type Service struct {
	repo Repository
	cfg  ServiceConfig
}

// NewService builds a Service instance.
func NewService(repo Repository, cfg ServiceConfig) *Service {
	if cfg.Designation == "" {
		cfg.Designation = "Volunteer"
	}
	return &Service{repo: repo, cfg: cfg}
}

// ByUserEmail resolves the volunteer acting under the given login email.
// A match through the linked member record wins over a direct volunteer email.
func (s *Service) ByUserEmail(ctx context.Context, email string) (Volunteer, error) {
	if email == "" {
		return Volunteer{}, ErrVolunteerNotFound
	}
	if v, err := s.repo.FindByMemberEmail(ctx, email); err == nil {
		return v, nil
	} else if !errors.Is(err, ErrVolunteerNotFound) {
		return Volunteer{}, err
	}
	return s.repo.FindByEmail(ctx, email)
}

// Get returns a volunteer by ID.
func (s *Service) Get(ctx context.Context, id int64) (Volunteer, error) {
	return s.repo.GetVolunteer(ctx, id)
}

// EnsureEmployee returns the volunteer's employee ID, creating a minimal
// expense-only employee record when none is linked yet.
func (s *Service) EnsureEmployee(ctx context.Context, volunteerID int64) (int64, error) {
	vol, err := s.repo.GetVolunteer(ctx, volunteerID)
	if err != nil {
		return 0, err
	}
	if vol.EmployeeID != nil {
		return *vol.EmployeeID, nil
	}
	var employeeID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreateEmployee(ctx, CreateEmployeeInput{
			VolunteerID: vol.ID,
			Name:        vol.Name,
			Company:     s.cfg.Company,
			Designation: s.cfg.Designation,
		})
		if err != nil {
			return err
		}
		employeeID = id
		return tx.LinkEmployee(ctx, vol.ID, id)
	})
	if err != nil {
		return 0, err
	}
	return employeeID, nil
}
