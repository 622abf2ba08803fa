package services

import (
	"context"
	"fmt"

	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/kamikazebr/license-gateway/internal/server/licensing"
	"github.com/kamikazebr/license-gateway/internal/server/storage"
	"github.com/kamikazebr/license-gateway/pkg/models"
)

const recentActivityLimit = 10

// ReportService builds the dashboard and the console reports.
type ReportService struct {
	licenseRepo *storage.LicenseRepository
	productRepo *storage.ProductRepository
	userRepo    *storage.UserRepository
	analytics   *AnalyticsRecorder
	clock       quartz.Clock
}

func NewReportService(
	licenseRepo *storage.LicenseRepository,
	productRepo *storage.ProductRepository,
	userRepo *storage.UserRepository,
	analytics *AnalyticsRecorder,
	clock quartz.Clock,
) *ReportService {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &ReportService{
		licenseRepo: licenseRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		analytics:   analytics,
		clock:       clock,
	}
}

func (s *ReportService) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	var (
		stats    models.DashboardStats
		byStatus map[models.LicenseStatus]int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.TotalLicenses, err = s.licenseRepo.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		byStatus, err = s.licenseRepo.CountByStatus(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalUsers, err = s.userRepo.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalProducts, err = s.productRepo.CountActive(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.RecentActivities, err = s.analytics.Recent(gctx, recentActivityLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load dashboard stats: %w", err)
	}

	stats.ActiveLicenses = byStatus[models.LicenseStatusActive]
	return &stats, nil
}

func (s *ReportService) LicenseReport(ctx context.Context, filter models.LicenseFilter) (*models.LicenseReport, error) {
	licenses, err := s.licenseRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list licenses: %w", err)
	}

	report := &models.LicenseReport{
		GeneratedAt:     s.now(),
		TotalLicenses:   len(licenses),
		StatusBreakdown: make(map[string]int, len(models.LicenseStatuses)),
		Licenses:        make([]models.LicenseReportRow, 0, len(licenses)),
	}
	for _, status := range models.LicenseStatuses {
		report.StatusBreakdown[string(status)] = 0
	}

	for _, l := range licenses {
		report.StatusBreakdown[string(l.Status)]++

		row := models.LicenseReportRow{
			ID:         l.ID.String(),
			LicenseKey: l.LicenseKey,
			Product:    l.ProductName,
			User:       "Unassigned",
			Status:     string(l.Status),
			CreatedAt:  licensing.FormatTimestamp(l.CreatedAt),
		}
		if l.UserFullName != nil && *l.UserFullName != "" {
			row.User = *l.UserFullName
		} else if l.UserEmail != nil {
			row.User = *l.UserEmail
		}
		if l.ExpiresAt != nil {
			expiresAt := licensing.FormatTimestamp(*l.ExpiresAt)
			row.ExpiresAt = &expiresAt
		}
		report.Licenses = append(report.Licenses, row)
	}
	return report, nil
}

func (s *ReportService) UserReport(ctx context.Context) (*models.UserReport, error) {
	users, err := s.userRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	report := &models.UserReport{
		GeneratedAt: s.now(),
		TotalUsers:  len(users),
		Users:       make([]models.UserReportRow, 0, len(users)),
	}
	for _, u := range users {
		report.Users = append(report.Users, models.UserReportRow{
			ID:        u.ID.String(),
			Email:     u.Email,
			FullName:  u.FullName,
			Company:   u.Company,
			Role:      u.Role,
			CreatedAt: licensing.FormatTimestamp(u.CreatedAt),
		})
	}
	return report, nil
}

func (s *ReportService) RevenueReport(ctx context.Context) (*models.RevenueReport, error) {
	byProduct, err := s.productRepo.Revenue(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load revenue by product: %w", err)
	}
	totalLicenses, totalRevenue, err := s.productRepo.RevenueTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load revenue totals: %w", err)
	}

	report := &models.RevenueReport{
		GeneratedAt:      s.now(),
		TotalRevenue:     totalRevenue,
		TotalLicenses:    totalLicenses,
		RevenueByProduct: byProduct,
	}
	if totalLicenses > 0 {
		report.AverageRevenuePerLicense = totalRevenue / float64(totalLicenses)
	}
	return report, nil
}

// FullReport bundles the three reports with a summary.
func (s *ReportService) FullReport(ctx context.Context) (*models.FullReport, error) {
	var (
		licenses *models.LicenseReport
		users    *models.UserReport
		revenue  *models.RevenueReport
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		licenses, err = s.LicenseReport(gctx, models.LicenseFilter{})
		return err
	})
	g.Go(func() (err error) {
		users, err = s.UserReport(gctx)
		return err
	})
	g.Go(func() (err error) {
		revenue, err = s.RevenueReport(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &models.FullReport{
		GeneratedAt: s.now(),
		Summary: models.ReportSummary{
			TotalLicenses: licenses.TotalLicenses,
			TotalUsers:    users.TotalUsers,
			TotalRevenue:  revenue.TotalRevenue,
		},
		Licenses: licenses,
		Users:    users,
		Revenue:  revenue,
	}, nil
}

func (s *ReportService) now() string {
	return licensing.FormatTimestamp(s.clock.Now())
}
