package volunteers

import "time"

// Volunteer represents a registered volunteer profile.
type Volunteer struct {
	ID         int64
	Name       string
	Email      string
	MemberID   *int64
	EmployeeID *int64
	IsActive   bool
	CreatedAt  time.Time
}

// Member represents an association member linked to a volunteer.
type Member struct {
	ID    int64
	Name  string
	Email string
}

// Employee is the minimal payroll record expense claims are booked against.
type Employee struct {
	ID          int64
	VolunteerID int64
	Name        string
	Company     string
	Designation string
	CreatedAt   time.Time
}

// CreateEmployeeInput for lazily provisioning expense-only employees.
type CreateEmployeeInput struct {
	VolunteerID int64
	Name        string
	Company     string
	Designation string
}
