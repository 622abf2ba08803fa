package storage_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamikazebr/license-gateway/internal/server/licensing"
	"github.com/kamikazebr/license-gateway/internal/testutil"
	"github.com/kamikazebr/license-gateway/pkg/models"
)

func TestActivationRepository_ConcurrentActivationsRespectLimit(t *testing.T) {
	tdb := testutil.GetTestDB(t)
	repos := tdb.Repositories()
	ctx := context.Background()

	product := tdb.CreateTestProduct(ctx, 10)
	license := tdb.CreateTestLicense(ctx, product.ID, models.LicenseStatusActive, 2, nil)
	activator := licensing.NewActivator(repos.Activations, nil)

	const attempts = 10
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ok   int
		errs []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := activator.Activate(ctx, license.ID, licensing.ActivationRequest{DeviceID: fmt.Sprintf("device-%d", i)})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			ok++
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 2, ok)
	for _, err := range errs {
		assert.True(t, errors.Is(err, licensing.ErrActivationLimit), "unexpected error: %v", err)
	}

	details, err := repos.Licenses.GetByID(ctx, license.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, details.CurrentActivations)
}

func TestActivationRepository_ReactivateAndRelease(t *testing.T) {
	tdb := testutil.GetTestDB(t)
	repos := tdb.Repositories()
	ctx := context.Background()

	product := tdb.CreateTestProduct(ctx, 10)
	license := tdb.CreateTestLicense(ctx, product.ID, models.LicenseStatusActive, 1, nil)
	activator := licensing.NewActivator(repos.Activations, nil)

	first, err := activator.Activate(ctx, license.ID, licensing.ActivationRequest{DeviceID: "hwid-1", IPAddress: "127.0.0.1"})
	require.NoError(t, err)
	assert.False(t, first.AlreadyActive)

	again, err := activator.Activate(ctx, license.ID, licensing.ActivationRequest{DeviceID: "hwid-1"})
	require.NoError(t, err)
	assert.True(t, again.AlreadyActive)
	assert.Equal(t, first.Activation.ID, again.Activation.ID)

	_, err = activator.Activate(ctx, license.ID, licensing.ActivationRequest{DeviceID: "hwid-2"})
	assert.ErrorIs(t, err, licensing.ErrActivationLimit)

	released, err := activator.Deactivate(ctx, license.ID, "hwid-1")
	require.NoError(t, err)
	assert.False(t, released.IsActive)
	require.NotNil(t, released.DeactivatedAt)

	_, err = activator.Deactivate(ctx, license.ID, "hwid-1")
	assert.ErrorIs(t, err, licensing.ErrActivationNotFound)

	_, err = activator.Activate(ctx, license.ID, licensing.ActivationRequest{DeviceID: "hwid-2"})
	require.NoError(t, err)

	list, err := activator.List(ctx, license.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestActivationRepository_RefusesInactiveLicenses(t *testing.T) {
	tdb := testutil.GetTestDB(t)
	repos := tdb.Repositories()
	ctx := context.Background()

	product := tdb.CreateTestProduct(ctx, 10)
	past := time.Now().Add(-time.Hour)
	lapsed := tdb.CreateTestLicense(ctx, product.ID, models.LicenseStatusActive, 5, &past)
	suspended := tdb.CreateTestLicense(ctx, product.ID, models.LicenseStatusSuspended, 5, nil)
	activator := licensing.NewActivator(repos.Activations, nil)

	_, err := activator.Activate(ctx, lapsed.ID, licensing.ActivationRequest{DeviceID: "a"})
	assert.ErrorIs(t, err, licensing.ErrLicenseInactive)

	_, err = activator.Activate(ctx, suspended.ID, licensing.ActivationRequest{DeviceID: "a"})
	assert.ErrorIs(t, err, licensing.ErrLicenseInactive)
}
