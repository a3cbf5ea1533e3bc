// Command admin manages the remoteStorage user table directly against the
// userfile, without going through a running server.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"remotestorage/internal/config"
	"remotestorage/internal/security"
	"remotestorage/internal/storage/database"
	"remotestorage/internal/storage/engine/memory"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	settingsPath := flag.String("config", "./settings.toml", "path to the TOML settings file")
	subcommand := os.Args[1]
	flag.CommandLine.Parse(os.Args[2:])

	settings, err := config.Load(*settingsPath)
	if err != nil {
		fatalf("load settings: %v", err)
	}

	encryptionKey, err := settings.EncryptionKey()
	if err != nil {
		fatalf("parse encryption key: %v", err)
	}
	if settings.UserfilePath == "" {
		fatalf("settings.toml must set userfile_path for the admin CLI to operate on")
	}
	userStore := security.NewStore(settings.UserfilePath, encryptionKey)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	db, err := database.New(memory.New(), database.Settings{
		TokenLifetime: time.Duration(settings.TokenLifetimeSeconds) * time.Second,
		UserStore:     userStore,
	}, logger)
	if err != nil {
		fatalf("load user table: %v", err)
	}

	args := flag.Args()
	switch subcommand {
	case "create-user":
		runCreateUser(db, args)
	case "remove-user":
		runRemoveUser(db, args)
	case "generate-token":
		runGenerateToken(db, args)
	case "list-users":
		runListUsers(db)
	default:
		usage()
		os.Exit(1)
	}
}

func runCreateUser(db *database.Database, args []string) {
	if len(args) != 2 {
		fatalf("usage: admin create-user <username> <password>")
	}
	if err := db.CreateUser(args[0], args[1]); err != nil {
		fatalf("create user: %v", err)
	}
	fmt.Printf("created user %q\n", args[0])
}

func runRemoveUser(db *database.Database, args []string) {
	if len(args) != 2 {
		fatalf("usage: admin remove-user <username> <password>")
	}
	if err := db.RemoveUser(args[0], args[1]); err != nil {
		fatalf("remove user: %v", err)
	}
	fmt.Printf("removed user %q\n", args[0])
}

func runGenerateToken(db *database.Database, args []string) {
	if len(args) != 4 {
		fatalf("usage: admin generate-token <username> <password> <description> <scope>")
	}
	token, err := db.GenerateToken(args[0], args[1], args[2], args[3])
	if err != nil {
		fatalf("generate token: %v", err)
	}
	fmt.Println(token)
}

func runListUsers(db *database.Database) {
	for _, username := range db.ListUsernames() {
		fmt.Println(username)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: admin <create-user|remove-user|generate-token|list-users> [args...]")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
