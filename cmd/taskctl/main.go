// cmd/taskctl/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/taskflowhq/taskflow/internal/auth"
	"github.com/taskflowhq/taskflow/internal/config"
	"github.com/taskflowhq/taskflow/internal/model"
	"github.com/taskflowhq/taskflow/internal/repository"
)

var verbose bool

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedAdminCmd)
	rootCmd.AddCommand(healthCmd)
}

var rootCmd = &cobra.Command{
	Use:   "taskctl",
	Short: "taskctl manages a TaskFlow deployment",
	Long:  `taskctl runs schema migrations, seeds the first admin account and checks deployment health.`,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long:  `Create or update the database schema for all TaskFlow models.`,
	Run: func(cmd *cobra.Command, args []string) {
		db := mustOpenDatabase()

		models := []interface{}{
			&model.User{},
			&model.Organization{},
			&model.Membership{},
			&model.Invitation{},
			&model.Project{},
			&model.Task{},
			&model.EmbedWidget{},
			&model.EmbedLog{},
			&model.AuditLog{},
			&model.AgentRun{},
		}
		if err := db.AutoMigrate(models...); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}

		fmt.Printf("Migrated %d models\n", len(models))
	},
}

var (
	seedEmail    string
	seedName     string
	seedPassword string
	seedOrgName  string
)

func init() {
	seedAdminCmd.Flags().StringVar(&seedEmail, "email", "", "Admin email address")
	seedAdminCmd.Flags().StringVar(&seedName, "name", "Admin", "Admin display name")
	seedAdminCmd.Flags().StringVar(&seedPassword, "password", "", "Admin password")
	seedAdminCmd.Flags().StringVar(&seedOrgName, "org", "", "Organization name")
	seedAdminCmd.MarkFlagRequired("email")
	seedAdminCmd.MarkFlagRequired("password")
	seedAdminCmd.MarkFlagRequired("org")
}

var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create an organization with its first admin user",
	Run: func(cmd *cobra.Command, args []string) {
		db := mustOpenDatabase()
		ctx := context.Background()

		hasher := auth.NewPasswordHasher()
		hash, err := hasher.Hash(seedPassword)
		if err != nil {
			log.Fatalf("Hashing password: %v", err)
		}

		user := &model.User{
			Name:         seedName,
			Email:        seedEmail,
			PasswordHash: hash,
		}
		slug := strings.ToLower(strings.Join(strings.Fields(seedOrgName), "-"))
		org := &model.Organization{
			Name: seedOrgName,
			Slug: slug,
		}

		orgRepo := repository.NewOrganizationRepository(db)
		if err := orgRepo.CreateWithOwner(ctx, org, user, model.RoleAdmin); err != nil {
			log.Fatalf("Seeding admin: %v", err)
		}

		fmt.Printf("Created organization %s (%s) with admin %s\n", org.Name, org.Slug, user.Email)
	},
}

var healthURL string

func init() {
	healthCmd.Flags().StringVar(&healthURL, "url", "http://localhost:8080/health", "Health endpoint URL")
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check a running API server",
	Run: func(cmd *cobra.Command, args []string) {
		client := &http.Client{Timeout: 5 * time.Second}
		resp, err := client.Get(healthURL)
		if err != nil {
			log.Fatalf("Health check failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			log.Fatalf("Health check returned HTTP %d", resp.StatusCode)
		}
		fmt.Println("ok")
	},
}

func mustOpenDatabase() *gorm.DB {
	_ = godotenv.Load()
	cfg := config.Load()

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s search_path=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Name,
		cfg.Database.SSLMode,
		cfg.Database.SearchPath,
	)

	logLevel := logger.Silent
	if verbose {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		log.Fatalf("Connecting to database: %v", err)
	}
	return db
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
