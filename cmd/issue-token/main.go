package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/stemsi/quizlr/internal/config"
	"github.com/stemsi/quizlr/internal/logger"
	"github.com/stemsi/quizlr/internal/service"
	"golang.org/x/term"
)

func main() {
	var (
		userFlag     string
		roleFlag     string
		promptSecret bool
	)
	flag.StringVar(&userFlag, "user", "", "User id (defaults to a new random id)")
	flag.StringVar(&roleFlag, "role", "", "Role: learner or author")
	flag.BoolVar(&promptSecret, "prompt-secret", false, "Read the signing secret from the terminal instead of JWT_SECRET")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Issue Access Token ===")

	// Role
	role := service.Role(strings.ToLower(strings.TrimSpace(roleFlag)))
	if role == "" {
		fmt.Print("Enter Role (learner/author, default learner): ")
		line, _ := reader.ReadString('\n')
		role = service.Role(strings.ToLower(strings.TrimSpace(line)))
		if role == "" {
			role = service.RoleLearner
		}
	}
	if !role.Valid() {
		fmt.Printf("Error: unknown role %q\n", role)
		return
	}

	// User ID
	userID := uuid.New()
	if userFlag != "" {
		id, err := uuid.Parse(userFlag)
		if err != nil {
			fmt.Println("Error: user must be a UUID")
			return
		}
		userID = id
	}

	// Secret
	if promptSecret {
		fmt.Print("Enter Signing Secret: ")
		secret, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			fmt.Println("Error reading secret")
			return
		}
		if len(secret) < 16 {
			fmt.Println("Error: secret must be at least 16 characters")
			return
		}
		cfg.JWTSecret = string(secret)
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	authService := service.NewAuthService(cfg, nil)
	token, err := authService.IssueToken(userID, role)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to issue token")
	}

	fmt.Printf("\nUser ID: %s\nRole:    %s\nExpires: in %s\n\n%s\n", userID, role, cfg.JWTExpiry, token)
}
