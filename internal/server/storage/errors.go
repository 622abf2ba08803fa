package storage

import (
	"errors"

	"github.com/lib/pq"
)

const (
	constraintLicenseKey = "licenses_license_key_key"
	constraintUserEmail  = "users_email_key"

	constraintActivationBound = "licenses_activation_bound"
)

var ErrEmailTaken = errors.New("email already registered")

// isUniqueViolation reports a 23505 error, optionally restricted to the
// named constraints.
func isUniqueViolation(err error, constraints ...string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code.Name() != "unique_violation" {
		return false
	}
	if len(constraints) == 0 {
		return true
	}
	for _, c := range constraints {
		if pqErr.Constraint == c {
			return true
		}
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation"
}

func isCheckViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Name() == "check_violation" && pqErr.Constraint == constraint
}
