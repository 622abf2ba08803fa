package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kamikazebr/license-gateway/internal/server/licensing"
	"github.com/kamikazebr/license-gateway/pkg/models"
)

// CreateTestUser creates a test user in the database
func (tdb *TestDB) CreateTestUser(ctx context.Context, email, role string) *models.User {
	tdb.t.Helper()

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: "$2a$10$test.hash.not.a.real.password.hash.value",
		FullName:     "Test User",
		Role:         role,
	}
	err := tdb.DB.QueryRowContext(ctx, `
		INSERT INTO users (id, email, password_hash, full_name, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, user.ID, user.Email, user.PasswordHash, user.FullName, user.Role).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		tdb.t.Fatalf("Failed to create test user: %v", err)
	}

	tdb.t.Cleanup(func() { tdb.DeleteTestUser(context.Background(), user.ID) })
	return user
}

// DeleteTestUser removes a test user and the licenses it owns
func (tdb *TestDB) DeleteTestUser(ctx context.Context, userID uuid.UUID) {
	_, _ = tdb.DB.ExecContext(ctx, "DELETE FROM licenses WHERE user_id = $1", userID)
	_, _ = tdb.DB.ExecContext(ctx, "DELETE FROM users WHERE id = $1", userID)
}

// CreateTestProduct creates an active product with a unique name
func (tdb *TestDB) CreateTestProduct(ctx context.Context, price float64) *models.Product {
	tdb.t.Helper()

	product := &models.Product{
		ID:          uuid.New(),
		Name:        GenerateTestProductName(),
		Description: "test product",
		Version:     "2.1.0",
		Price:       price,
		IsActive:    true,
	}
	err := tdb.DB.QueryRowContext(ctx, `
		INSERT INTO products (id, name, description, version, price, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, product.ID, product.Name, product.Description, product.Version, product.Price, product.IsActive).
		Scan(&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		tdb.t.Fatalf("Failed to create test product: %v", err)
	}

	tdb.t.Cleanup(func() { tdb.DeleteTestProduct(context.Background(), product.ID) })
	return product
}

// DeleteTestProduct removes a product together with its licenses
func (tdb *TestDB) DeleteTestProduct(ctx context.Context, productID uuid.UUID) {
	_, _ = tdb.DB.ExecContext(ctx, "DELETE FROM licenses WHERE product_id = $1", productID)
	_, _ = tdb.DB.ExecContext(ctx, "DELETE FROM products WHERE id = $1", productID)
}

// CreateTestLicense creates a license for productID with a fresh key
func (tdb *TestDB) CreateTestLicense(ctx context.Context, productID uuid.UUID, status models.LicenseStatus, maxActivations int, expiresAt *time.Time) *models.License {
	tdb.t.Helper()

	key, err := licensing.GenerateKey()
	if err != nil {
		tdb.t.Fatalf("Failed to generate license key: %v", err)
	}

	license := &models.License{
		ID:             uuid.New(),
		LicenseKey:     key,
		ProductID:      productID,
		Status:         status,
		MaxActivations: maxActivations,
		ExpiresAt:      expiresAt,
	}
	err = tdb.DB.QueryRowContext(ctx, `
		INSERT INTO licenses (id, license_key, product_id, status, max_activations, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, license.ID, license.LicenseKey, license.ProductID, license.Status, license.MaxActivations, license.ExpiresAt).
		Scan(&license.CreatedAt, &license.UpdatedAt)
	if err != nil {
		tdb.t.Fatalf("Failed to create test license: %v", err)
	}
	return license
}

// GenerateTestEmail generates a unique test email
func GenerateTestEmail() string {
	return fmt.Sprintf("test-%s@example.com", uuid.New().String()[:8])
}

// GenerateTestProductName generates a unique product name
func GenerateTestProductName() string {
	return fmt.Sprintf("Test Product %s", uuid.New().String()[:8])
}
