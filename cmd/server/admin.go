package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kamikazebr/license-gateway/internal/server/config"
	"github.com/kamikazebr/license-gateway/internal/server/licensing"
	"github.com/kamikazebr/license-gateway/internal/server/services"
	"github.com/kamikazebr/license-gateway/internal/server/storage"
	"github.com/kamikazebr/license-gateway/pkg/models"
	"github.com/kamikazebr/license-gateway/pkg/utils"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administrative commands",
	Long:  "Administrative commands for managing console users, products and licenses",
}

var createUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "Create a console user (use --role admin for operators)",
	Run:   runCreateUserCommand,
}

var createProductCmd = &cobra.Command{
	Use:   "create-product",
	Short: "Create a product licenses can be issued for",
	Run:   runCreateProductCommand,
}

var issueLicenseCmd = &cobra.Command{
	Use:   "issue-license",
	Short: "Issue a license key for a product",
	Run:   runIssueLicenseCommand,
}

var listLicensesCmd = &cobra.Command{
	Use:   "list-licenses",
	Short: "List licenses, newest first",
	Run:   runListLicensesCommand,
}

var setStatusCmd = &cobra.Command{
	Use:   "set-status",
	Short: "Change the status of a license by key",
	Run:   runSetStatusCommand,
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Set a new password for a console user",
	Run:   runResetPasswordCommand,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the sample products and the demo license row",
	Run:   runSeedCommand,
}

func init() {
	createUserCmd.Flags().String("email", "", "User email (required)")
	createUserCmd.Flags().String("password", "", "Password, at least 8 characters (required)")
	createUserCmd.Flags().String("role", models.RoleUser, "Role: admin or user")
	createUserCmd.Flags().String("name", "", "Full name")
	createUserCmd.Flags().String("company", "", "Company")
	createUserCmd.MarkFlagRequired("email")
	createUserCmd.MarkFlagRequired("password")

	createProductCmd.Flags().String("name", "", "Product name, matched exactly by clients (required)")
	createProductCmd.Flags().String("description", "", "Description")
	createProductCmd.Flags().String("version", models.DefaultProductVersion, "Current version")
	createProductCmd.Flags().Float64("price", 0, "Price per license")
	createProductCmd.MarkFlagRequired("name")

	issueLicenseCmd.Flags().String("product", "", "Product name (required)")
	issueLicenseCmd.Flags().String("email", "", "Owner email")
	issueLicenseCmd.Flags().Int("max-activations", 0, "Maximum activations (default from DEFAULT_MAX_ACTIVATIONS)")
	issueLicenseCmd.Flags().Int("duration-days", 0, "Days until expiry")
	issueLicenseCmd.Flags().String("expires-at", "", "Expiry as RFC 3339 or YYYY-MM-DD")
	issueLicenseCmd.Flags().String("status", string(models.LicenseStatusActive), "Initial status")
	issueLicenseCmd.MarkFlagRequired("product")

	listLicensesCmd.Flags().String("status", "", "Only licenses with this status")
	listLicensesCmd.Flags().String("search", "", "Only keys containing this text")

	setStatusCmd.Flags().String("key", "", "License key (required)")
	setStatusCmd.Flags().String("status", "", "New status: active, expired, pending or suspended (required)")
	setStatusCmd.MarkFlagRequired("key")
	setStatusCmd.MarkFlagRequired("status")

	resetPasswordCmd.Flags().String("email", "", "User email (required)")
	resetPasswordCmd.Flags().String("password", "", "New password, at least 8 characters (required)")
	resetPasswordCmd.MarkFlagRequired("email")
	resetPasswordCmd.MarkFlagRequired("password")

	// Add subcommands to admin command
	adminCmd.AddCommand(
		createUserCmd,
		createProductCmd,
		issueLicenseCmd,
		listLicensesCmd,
		setStatusCmd,
		resetPasswordCmd,
		seedCmd,
	)
}

// adminEnv is what the admin commands share: a connection and the services.
type adminEnv struct {
	cfg      config.ServerConfig
	db       *storage.DB
	users    *storage.UserRepository
	products *storage.ProductRepository
	licenses *storage.LicenseRepository
	license  *services.LicenseService
}

func newAdminEnv() *adminEnv {
	cfg := loadConfig()
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL environment variable not set")
	}
	db := connect(cfg)

	env := &adminEnv{
		cfg:      cfg,
		db:       db,
		users:    storage.NewUserRepository(db),
		products: storage.NewProductRepository(db),
		licenses: storage.NewLicenseRepository(db),
	}
	env.license = services.NewLicenseService(env.licenses, env.products, env.users,
		services.NewAnalyticsRecorder(storage.NewAnalyticsRepository(db)),
		services.LicenseServiceConfig{
			KeyGenerationAttempts: cfg.KeyGenerationAttempts,
			DefaultMaxActivations: cfg.DefaultMaxActivations,
		})
	return env
}

func runCreateUserCommand(cmd *cobra.Command, args []string) {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	role, _ := cmd.Flags().GetString("role")
	name, _ := cmd.Flags().GetString("name")
	company, _ := cmd.Flags().GetString("company")

	env := newAdminEnv()
	defer env.db.Close()

	auth := services.NewAuthService(env.users, env.cfg.JWTSecret, env.cfg.JWTExpiration)
	user, err := auth.CreateUser(context.Background(), email, password, role, models.SignUpFields{
		FullName: name,
		Company:  company,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create user")
	}

	fmt.Printf("✓ Created %s user %s (id: %s)\n", user.Role, user.Email, user.ID)
}

func runCreateProductCommand(cmd *cobra.Command, args []string) {
	name, _ := cmd.Flags().GetString("name")
	description, _ := cmd.Flags().GetString("description")
	version, _ := cmd.Flags().GetString("version")
	price, _ := cmd.Flags().GetFloat64("price")

	env := newAdminEnv()
	defer env.db.Close()

	product, err := services.NewProductService(env.products).Create(context.Background(), models.CreateProductRequest{
		Name:        name,
		Description: description,
		Version:     version,
		Price:       &price,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create product")
	}

	fmt.Printf("✓ Created product %q %s (id: %s, price: %.2f)\n", product.Name, product.Version, product.ID, product.Price)
}

func runIssueLicenseCommand(cmd *cobra.Command, args []string) {
	productName, _ := cmd.Flags().GetString("product")
	email, _ := cmd.Flags().GetString("email")
	maxActivations, _ := cmd.Flags().GetInt("max-activations")
	durationDays, _ := cmd.Flags().GetInt("duration-days")
	expiresAt, _ := cmd.Flags().GetString("expires-at")
	status, _ := cmd.Flags().GetString("status")

	env := newAdminEnv()
	defer env.db.Close()
	ctx := context.Background()

	product, err := env.products.GetByName(ctx, productName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to look up product")
	}
	if product == nil {
		log.Fatal().Str("product", productName).Msg("Product not found")
	}

	req := models.CreateLicenseRequest{
		ProductID: product.ID.String(),
		Status:    status,
	}
	if email != "" {
		user, err := env.users.GetByEmail(ctx, email)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to look up user")
		}
		if user == nil {
			log.Fatal().Str("email", email).Msg("User not found")
		}
		userID := user.ID.String()
		req.UserID = &userID
	}
	if maxActivations > 0 {
		req.MaxActivations = &maxActivations
	}
	if durationDays > 0 {
		req.DurationDays = &durationDays
	}
	if expiresAt != "" {
		req.ExpiresAt = &expiresAt
	}

	license, err := env.license.Create(ctx, nil, req)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to issue license")
	}

	fmt.Printf("✓ Issued license for %s\n", license.ProductName)
	fmt.Printf("  Key:             %s\n", license.LicenseKey)
	fmt.Printf("  Status:          %s\n", license.Status)
	fmt.Printf("  Max activations: %d\n", license.MaxActivations)
	fmt.Printf("  Expires:         %s\n", formatExpiry(license.ExpiresAt))
}

func runListLicensesCommand(cmd *cobra.Command, args []string) {
	status, _ := cmd.Flags().GetString("status")
	search, _ := cmd.Flags().GetString("search")

	env := newAdminEnv()
	defer env.db.Close()

	licenses, err := env.license.List(context.Background(), models.LicenseFilter{
		Status: models.LicenseStatus(status),
		Search: search,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list licenses")
	}

	if len(licenses) == 0 {
		fmt.Println("No licenses found")
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tPRODUCT\tSTATUS\tACTIVATIONS\tOWNER\tEXPIRES")
	for _, l := range licenses {
		owner := "-"
		if l.UserEmail != nil {
			owner = *l.UserEmail
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			l.LicenseKey, l.ProductName, l.Status,
			l.CurrentActivations, l.MaxActivations,
			owner, formatExpiry(l.ExpiresAt))
	}
	tw.Flush()
	fmt.Printf("\nTotal: %d\n", len(licenses))
}

func runSetStatusCommand(cmd *cobra.Command, args []string) {
	key, _ := cmd.Flags().GetString("key")
	status, _ := cmd.Flags().GetString("status")

	env := newAdminEnv()
	defer env.db.Close()
	ctx := context.Background()

	licenses, err := env.licenses.List(ctx, models.LicenseFilter{Search: key})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to look up license")
	}
	var target *models.LicenseDetails
	for i := range licenses {
		if licenses[i].LicenseKey == strings.TrimSpace(key) {
			target = &licenses[i]
			break
		}
	}
	if target == nil {
		log.Fatal().Str("key", key).Msg("License not found")
	}

	updated, err := env.license.Update(ctx, target.ID, models.UpdateLicenseRequest{Status: &status})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to update license")
	}
	fmt.Printf("✓ %s is now %s\n", updated.LicenseKey, updated.Status)
}

func runResetPasswordCommand(cmd *cobra.Command, args []string) {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	if len(password) < 8 {
		log.Fatal().Msg("Password must be at least 8 characters")
	}

	env := newAdminEnv()
	defer env.db.Close()
	ctx := context.Background()

	user, err := env.users.GetByEmail(ctx, email)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to look up user")
	}
	if user == nil {
		log.Fatal().Str("email", email).Msg("User not found")
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}
	if err := env.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		log.Fatal().Err(err).Msg("Failed to update password")
	}
	fmt.Printf("✓ Password updated for %s\n", user.Email)
}

type seedProduct struct {
	name        string
	description string
	version     string
	price       float64
}

var sampleProducts = []seedProduct{
	{"Premium Suite", "Premium software with advanced features", "2.1.0", 99.99},
	{"Basic Plan", "Core features for small businesses", "1.5.0", 29.99},
	{"Enterprise Package", "Complete solution for large organisations", "3.0.0", 299.99},
	{"Developer Tools", "Professional development toolkit", "1.8.0", 149.99},
}

// demoLicenseExpiry matches the synthetic demo response.
var demoLicenseExpiry = time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC)

func runSeedCommand(cmd *cobra.Command, args []string) {
	env := newAdminEnv()
	defer env.db.Close()
	ctx := context.Background()

	if err := env.db.MigrateUp(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	var premium *models.Product
	for _, sp := range sampleProducts {
		product, err := env.products.GetByName(ctx, sp.name)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to look up product")
		}
		if product == nil {
			product = &models.Product{
				Name:        sp.name,
				Description: sp.description,
				Version:     sp.version,
				Price:       sp.price,
				IsActive:    true,
			}
			if err := env.products.Create(ctx, product); err != nil {
				log.Fatal().Err(err).Str("product", sp.name).Msg("Failed to create product")
			}
			fmt.Printf("✓ Created product %q\n", product.Name)
		} else {
			fmt.Printf("  Product %q already exists\n", product.Name)
		}
		if premium == nil {
			premium = product
		}
	}

	demoKey := licensing.DefaultDemoRealm.LicenseKey
	demoExpiry := demoLicenseExpiry
	err := env.licenses.Create(ctx, &models.License{
		LicenseKey:     demoKey,
		ProductID:      premium.ID,
		Status:         models.LicenseStatusActive,
		MaxActivations: 1,
		ExpiresAt:      &demoExpiry,
	})
	switch {
	case errors.Is(err, licensing.ErrDuplicateKey):
		fmt.Printf("  Demo license %s already exists\n", demoKey)
	case err != nil:
		log.Fatal().Err(err).Msg("Failed to create demo license")
	default:
		fmt.Printf("✓ Created demo license %s\n", demoKey)
	}

	fmt.Println("\nSeed complete. Create an operator with:")
	fmt.Println("  license-server admin create-user --email you@example.com --password ... --role admin")
}

func formatExpiry(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.UTC().Format("2006-01-02 15:04 MST")
}

