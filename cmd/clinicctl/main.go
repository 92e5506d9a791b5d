package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"clinichistory/internal/config"
	"clinichistory/internal/database"
	"clinichistory/internal/logging"
	"clinichistory/internal/models"
	"clinichistory/internal/repository"
	"clinichistory/internal/service"
)

// readPassword is a seam over term.ReadPassword
var readPassword = term.ReadPassword

func main() {
	createUserCmd := flag.NewFlagSet("create-user", flag.ExitOnError)
	createEmail := createUserCmd.String("email", "", "Email address (required)")
	createName := createUserCmd.String("name", "", "Full name (required)")
	createRole := createUserCmd.String("role", string(models.RoleDoctor), "Role: doctor or admin")

	listUsersCmd := flag.NewFlagSet("list-users", flag.ExitOnError)

	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	exportEmail := exportCmd.String("email", "", "Owner email (required)")
	exportOutput := exportCmd.String("output", "", "Output file path (default: export_YYYYMMDD_HHMMSS.json)")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Environment, cfg.LogLevel)

	ctx := context.Background()
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.RunMigrations(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	userRepo := repository.NewUserRepository(db)

	switch os.Args[1] {
	case "create-user":
		createUserCmd.Parse(os.Args[2:])
		if *createEmail == "" || *createName == "" {
			createUserCmd.PrintDefaults()
			os.Exit(1)
		}
		handleCreateUser(ctx, userRepo, db, *createEmail, *createName, models.Role(*createRole))

	case "list-users":
		listUsersCmd.Parse(os.Args[2:])
		if err := listUsers(ctx, userRepo, os.Stdout); err != nil {
			log.Fatal().Err(err).Msg("Failed to list users")
		}

	case "export":
		exportCmd.Parse(os.Args[2:])
		if *exportEmail == "" {
			exportCmd.PrintDefaults()
			os.Exit(1)
		}
		handleExport(ctx, service.NewBackupService(userRepo, repository.NewRecordRepository(db)), *exportEmail, *exportOutput)

	default:
		printUsage()
		os.Exit(1)
	}
}

func handleCreateUser(ctx context.Context, userRepo *repository.UserRepository, db *database.DB, email, fullName string, role models.Role) {
	password, err := promptPassword(os.Stdin, os.Stderr)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read password")
	}

	// Registration rules live in the auth service; no session is issued here.
	authService := service.NewAuthService(userRepo, repository.NewSessionRepository(db), noDemo{}, 0, 0)

	user, err := authService.Register(ctx, email, fullName, password, role)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create user")
	}
	fmt.Printf("Created %s (%s) with id %d\n", user.Email, user.Role, user.ID)
}

// listUsers prints one row per account, oldest first
func listUsers(ctx context.Context, userRepo *repository.UserRepository, out io.Writer) error {
	users, err := userRepo.GetAllUsers(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tROLE\tNAME\tCREATED")
	for _, u := range users {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", u.ID, u.Email, u.Role, u.FullName, u.CreatedAt.Format("2006-01-02"))
	}
	return w.Flush()
}

func handleExport(ctx context.Context, backupService *service.BackupService, email, outputPath string) {
	if outputPath == "" {
		outputPath = fmt.Sprintf("export_%s.json", time.Now().Format("20060102_150405"))
	}

	dir := filepath.Dir(outputPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal().Err(err).Msg("Failed to create output directory")
		}
	}

	file, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create export file")
	}
	defer file.Close()

	if err := backupService.Export(ctx, email, file); err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}
	fmt.Printf("Exported records of %s to %s\n", email, outputPath)
}

// promptPassword reads a password without echo from a terminal, or one line
// from stdin when input is piped.
func promptPassword(in *os.File, w io.Writer) (string, error) {
	if !term.IsTerminal(int(in.Fd())) {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && line == "" {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}

	fmt.Fprint(w, "Password: ")
	pw, err := readPassword(int(in.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

// noDemo treats every account as real
type noDemo struct{}

func (noDemo) IsDemo(string) bool { return false }
func (noDemo) Clear(int64)        {}

func printUsage() {
	fmt.Println("Clinic administration tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  clinicctl create-user -email <email> -name <name> [-role doctor|admin]")
	fmt.Println("  clinicctl list-users")
	fmt.Println("  clinicctl export -email <email> [-output <file>]")
	fmt.Println()
	fmt.Println("The password for create-user is prompted for, or read from stdin when piped.")
}
