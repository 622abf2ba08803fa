package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/kamikazebr/license-gateway/internal/client/api"
	"github.com/kamikazebr/license-gateway/internal/client/device"
	"github.com/kamikazebr/license-gateway/internal/client/ui"
	"github.com/kamikazebr/license-gateway/internal/server/licensing"
	"github.com/kamikazebr/license-gateway/pkg/models"
	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"
)

var (
	validateKey     string
	validateProduct string
	validateVersion string
	validateAPIKey  string

	listStatus string
	listSearch string

	issueProductID      string
	issueUserID         string
	issueMaxActivations int
	issueDurationDays   int
	issueExpiresAt      string
	issueStatus         string
	issueYes            bool

	deviceID      string
	deactivateYes bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a license key against the validation API",
	Long: `Validate a license key the way an integrating application does.

On success the returned token is checked locally against the license key
and API key, so a mismatching or stale answer is reported.

Example:
  license-client validate --key QW3RT-Y7UIO-P1ASD-F2GHJ --product "Basic Plan" --version 1.5.0`,
	RunE: runValidate,
}

var licensesCmd = &cobra.Command{
	Use:   "licenses",
	Short: "Console license commands",
}

var licensesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List licenses visible to the signed-in user",
	RunE:  runLicensesList,
}

var licensesIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a new license (admin)",
	Long: `Issue a new license. Without --product-id the product is picked from
an interactive menu.`,
	RunE: runLicensesIssue,
}

var licensesQRCmd = &cobra.Command{
	Use:   "qr <license-key>",
	Short: "Print a license key as a terminal QR code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		qr, err := qrcode.New(args[0], qrcode.Medium)
		if err != nil {
			return fmt.Errorf("failed to generate QR code: %w", err)
		}
		fmt.Println(qr.ToSmallString(false))
		fmt.Println(args[0])
		return nil
	},
}

var activateCmd = &cobra.Command{
	Use:   "activate [license-id|license-key]",
	Short: "Activate a license on this device",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runActivate,
}

var deactivateCmd = &cobra.Command{
	Use:   "deactivate [license-id|license-key]",
	Short: "Release this device's activation slot",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDeactivate,
}

func init() {
	validateCmd.Flags().StringVar(&validateKey, "key", "", "License key")
	validateCmd.Flags().StringVar(&validateProduct, "product", "", "Product name")
	validateCmd.Flags().StringVar(&validateVersion, "version", "", "Product version")
	validateCmd.Flags().StringVar(&validateAPIKey, "api-key", "", "API key (defaults to the saved one)")
	_ = validateCmd.MarkFlagRequired("key")
	_ = validateCmd.MarkFlagRequired("product")
	_ = validateCmd.MarkFlagRequired("version")

	licensesListCmd.Flags().StringVar(&listStatus, "status", "", "Filter by status (active, expired, pending, suspended)")
	licensesListCmd.Flags().StringVar(&listSearch, "search", "", "Filter by license key substring")

	licensesIssueCmd.Flags().StringVar(&issueProductID, "product-id", "", "Product ID")
	licensesIssueCmd.Flags().StringVar(&issueUserID, "user-id", "", "Owner user ID")
	licensesIssueCmd.Flags().IntVar(&issueMaxActivations, "max-activations", 0, "Activation limit (server default when 0)")
	licensesIssueCmd.Flags().IntVar(&issueDurationDays, "duration-days", 0, "Validity in days from now")
	licensesIssueCmd.Flags().StringVar(&issueExpiresAt, "expires-at", "", "Explicit expiry (RFC3339)")
	licensesIssueCmd.Flags().StringVar(&issueStatus, "status", "", "Initial status (server default when empty)")
	licensesIssueCmd.Flags().BoolVarP(&issueYes, "yes", "y", false, "Skip confirmation prompt")

	activateCmd.Flags().StringVar(&deviceID, "device", "", "Device ID (defaults to this machine)")
	deactivateCmd.Flags().StringVar(&deviceID, "device", "", "Device ID (defaults to this machine)")
	deactivateCmd.Flags().BoolVarP(&deactivateYes, "yes", "y", false, "Skip confirmation prompt")

	licensesCmd.AddCommand(licensesListCmd, licensesIssueCmd, licensesQRCmd)
	rootCmd.AddCommand(validateCmd, licensesCmd, activateCmd, deactivateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, client, err := loadClient()
	if err != nil {
		return err
	}
	apiKey := validateAPIKey
	if apiKey == "" {
		apiKey = cfg.APIKey
	}
	apiKey = api.NormalizeAPIKey(apiKey)

	resp, err := client.Validate(apiKey, models.ClientValidationRequest{
		LicenseKey: validateKey,
		Product:    validateProduct,
		Version:    validateVersion,
	})
	var verr *api.ValidationError
	if errors.As(err, &verr) {
		fmt.Println(ui.ErrorStyle.Render(fmt.Sprintf("✗ %s (%d)", resp.StatusMsg, resp.StatusCode)))
		return err
	}
	if err != nil {
		return err
	}

	fmt.Println(ui.SuccessStyle.Render("✓ " + resp.StatusMsg))
	if info := resp.LicenseInfo; info != nil {
		fmt.Println(ui.Field("Product", info.Product+" "+info.Version))
		fmt.Println(ui.Field("Type", info.LicenseType))
		fmt.Println(ui.Field("Expires", valueOr(info.ExpiresAt, "never")))
		fmt.Println(ui.Field("Activations", fmt.Sprintf("%d/%d", info.CurrentActivations, info.MaxActivations)))
		fmt.Println(ui.Field("Validated at", info.ValidatedAt))
	}

	if resp.StatusID == nil {
		return errors.New("response carried no token")
	}
	if err := licensing.VerifyToken(*resp.StatusID, validateKey, apiKey, time.Now()); err != nil {
		fmt.Println(ui.WarningStyle.Render("! Token check failed: " + err.Error()))
		return err
	}
	fmt.Println(ui.Field("Token", "verified"))
	return nil
}

func runLicensesList(cmd *cobra.Command, args []string) error {
	cfg, client, err := loadSession()
	if err != nil {
		return err
	}
	licenses, err := client.ListLicenses(cfg.JWT, listStatus, listSearch)
	if err != nil {
		return sessionError(err)
	}
	if len(licenses) == 0 {
		fmt.Println(ui.HelpStyle.Render("No licenses found"))
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKEY\tPRODUCT\tOWNER\tSTATUS\tACTIVATIONS\tEXPIRES")
	for _, l := range licenses {
		product, owner := "-", "Unassigned"
		if l.Products != nil {
			product = l.Products.Name + " " + l.Products.Version
		}
		if l.UsersProfile != nil && l.UsersProfile.FullName != "" {
			owner = l.UsersProfile.FullName
		}
		expires := "never"
		if l.ExpiresAt != nil {
			expires = l.ExpiresAt.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d/%d\t%s\n",
			l.ID, l.LicenseKey, product, owner,
			ui.StatusStyle(string(l.Status)).Render(string(l.Status)),
			l.CurrentActivations, l.MaxActivations, expires)
	}
	return w.Flush()
}

func runLicensesIssue(cmd *cobra.Command, args []string) error {
	cfg, client, err := loadSession()
	if err != nil {
		return err
	}

	productID, productLabel := issueProductID, issueProductID
	if productID == "" {
		productID, productLabel, err = pickProduct(client, cfg.JWT, cfg.LastProductID)
		if err != nil {
			return err
		}
	}

	req := models.CreateLicenseRequest{ProductID: productID, Status: issueStatus}
	if issueUserID != "" {
		req.UserID = &issueUserID
	}
	if issueMaxActivations > 0 {
		req.MaxActivations = &issueMaxActivations
	}
	if issueDurationDays > 0 {
		req.DurationDays = &issueDurationDays
	}
	if issueExpiresAt != "" {
		req.ExpiresAt = &issueExpiresAt
	}

	if !issueYes {
		ok, err := ui.Confirm("Issue a license?", issueDetails(productLabel)...)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Cancelled")
			return nil
		}
	}

	license, err := client.CreateLicense(cfg.JWT, req)
	if err != nil {
		return sessionError(err)
	}
	cfg.LastProductID = productID
	if err := cfg.Save(); err != nil {
		fmt.Println(ui.WarningStyle.Render("! Could not save settings: " + err.Error()))
	}
	fmt.Println(ui.SuccessStyle.Render("✓ License issued"))
	fmt.Println(ui.Field("ID", license.ID.String()))
	fmt.Println(ui.Field("Key", ui.TitleStyle.Render(license.LicenseKey)))
	fmt.Println(ui.Field("Status", string(license.Status)))
	fmt.Println(ui.Field("Max activations", strconv.Itoa(license.MaxActivations)))
	if license.ExpiresAt != nil {
		fmt.Println(ui.Field("Expires", license.ExpiresAt.UTC().Format(time.RFC3339)))
	}
	return nil
}

func issueDetails(productLabel string) []ui.ConfirmOption {
	opts := []ui.ConfirmOption{ui.WithDetail("Product", productLabel)}
	if issueUserID != "" {
		opts = append(opts, ui.WithDetail("Owner", issueUserID))
	}
	if issueMaxActivations > 0 {
		opts = append(opts, ui.WithDetail("Max activations", strconv.Itoa(issueMaxActivations)))
	}
	switch {
	case issueExpiresAt != "":
		opts = append(opts, ui.WithDetail("Expires", issueExpiresAt))
	case issueDurationDays > 0:
		opts = append(opts, ui.WithDetail("Expires", fmt.Sprintf("in %d days", issueDurationDays)))
	default:
		opts = append(opts, ui.WithDetail("Expires", "never"))
	}
	if issueStatus != "" {
		opts = append(opts, ui.WithDetail("Status", issueStatus))
	}
	return append(opts, ui.WithLabels("Issue", "Cancel"))
}

func productOptions(products []models.Product) []ui.SelectOption {
	options := make([]ui.SelectOption, 0, len(products))
	for _, p := range products {
		opt := ui.SelectOption{
			Label:  p.Name + " " + p.Version,
			Detail: strings.TrimSpace(fmt.Sprintf("$%.2f  %s", p.Price, p.Description)),
			Value:  p.ID.String(),
		}
		if !p.IsActive {
			opt.Badge = "retired"
		}
		options = append(options, opt)
	}
	return options
}

func pickProduct(client *api.Client, jwt, lastID string) (id, label string, err error) {
	products, err := client.ListProducts(jwt)
	if err != nil {
		return "", "", sessionError(err)
	}
	if len(products) == 0 {
		return "", "", errors.New("no products available, create one first")
	}

	options := productOptions(products)
	idx, err := ui.Select("Select a product", options, ui.WithInitialValue(lastID))
	if err != nil {
		return "", "", err
	}
	if idx < 0 {
		return "", "", errors.New("cancelled")
	}
	return options[idx].Value, options[idx].Label, nil
}

func licenseOptions(licenses []api.License) []ui.SelectOption {
	options := make([]ui.SelectOption, 0, len(licenses))
	for _, l := range licenses {
		detail := fmt.Sprintf("%d/%d activations", l.CurrentActivations, l.MaxActivations)
		if l.Products != nil {
			detail = l.Products.Name + " " + l.Products.Version + "  " + detail
		}
		options = append(options, ui.SelectOption{
			Label:  l.LicenseKey,
			Detail: detail,
			Badge:  string(l.Status),
			Value:  l.ID.String(),
		})
	}
	return options
}

// chooseLicense resolves the optional argument, or asks when it is absent.
func chooseLicense(client *api.Client, jwt string, args []string) (*api.License, error) {
	if len(args) > 0 {
		return resolveLicense(client, jwt, args[0])
	}

	licenses, err := client.ListLicenses(jwt, "", "")
	if err != nil {
		return nil, sessionError(err)
	}
	if len(licenses) == 0 {
		return nil, errors.New("no licenses visible to this account")
	}
	idx, err := ui.Select("Select a license", licenseOptions(licenses))
	if err != nil {
		return nil, err
	}
	if idx < 0 {
		return nil, errors.New("cancelled")
	}
	return &licenses[idx], nil
}

func runActivate(cmd *cobra.Command, args []string) error {
	cfg, client, err := loadSession()
	if err != nil {
		return err
	}
	license, err := chooseLicense(client, cfg.JWT, args)
	if err != nil {
		return err
	}

	dev := deviceOrDefault()
	resp, err := client.Activate(cfg.JWT, license.ID, dev)
	if err != nil {
		return sessionError(err)
	}
	fmt.Println(ui.SuccessStyle.Render(fmt.Sprintf("✓ %s active on %s", license.LicenseKey, dev)))
	fmt.Println(ui.Field("Activations", fmt.Sprintf("%d/%d", resp.CurrentActivations, resp.MaxActivations)))
	return nil
}

func runDeactivate(cmd *cobra.Command, args []string) error {
	cfg, client, err := loadSession()
	if err != nil {
		return err
	}
	license, err := chooseLicense(client, cfg.JWT, args)
	if err != nil {
		return err
	}

	dev := deviceOrDefault()
	if !deactivateYes {
		ok, err := ui.Confirm("Release activation?",
			ui.WithDetail("License", license.LicenseKey),
			ui.WithDetail("Device", dev),
			ui.WithDestructive())
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Cancelled")
			return nil
		}
	}

	resp, err := client.Deactivate(cfg.JWT, license.ID, dev)
	if err != nil {
		return sessionError(err)
	}
	fmt.Println(ui.SuccessStyle.Render("✓ Activation released"))
	fmt.Println(ui.Field("Activations", fmt.Sprintf("%d/%d", resp.CurrentActivations, resp.MaxActivations)))
	return nil
}

// resolveLicense accepts either a license ID or a license key.
func resolveLicense(client *api.Client, jwt, ref string) (*api.License, error) {
	search := ref
	id, parseErr := uuid.Parse(ref)
	if parseErr == nil {
		search = ""
	}
	licenses, err := client.ListLicenses(jwt, "", search)
	if err != nil {
		return nil, sessionError(err)
	}
	for i := range licenses {
		if licenses[i].LicenseKey == ref || (parseErr == nil && licenses[i].ID == id) {
			return &licenses[i], nil
		}
	}
	return nil, fmt.Errorf("license %q not found", ref)
}

func deviceOrDefault() string {
	if deviceID != "" {
		return deviceID
	}
	return device.ID()
}

func valueOr(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
