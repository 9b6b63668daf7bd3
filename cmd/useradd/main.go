package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/letterdrop/letterdrop/internal/auth"
	authdb "github.com/letterdrop/letterdrop/internal/auth/db"
	"github.com/letterdrop/letterdrop/internal/db"
	"github.com/letterdrop/letterdrop/internal/krypto"
)

const helpText = `Usage: useradd [sqlite_file] [username]

The password is read from the first line of stdin.

Required environment variables:
  DB_ENCRYPTION_KEYS  comma separated hex encoded keys
  DB_BLIND_INDEX_KEY  hex encoded key`

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, helpText)
		os.Exit(1)
	}

	dbFile, username := os.Args[1], os.Args[2]

	encryptor, blindIndexKey, err := keysFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		fmt.Fprintln(os.Stderr, "failed to read password from stdin")
		os.Exit(1)
	}

	password, err := auth.ParsePassword(scanner.Text())
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid password: %v\n", err)
		os.Exit(1)
	}

	sqlDB, err := db.OpenSQLite(dbFile, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
		os.Exit(1)
	}

	verifier, err := auth.NewVerifier(1)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create password verifier: %v\n", err)
		os.Exit(1)
	}

	svc, err := auth.NewService(authdb.New(sqlDB, encryptor, blindIndexKey), verifier)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create auth service: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*60)
	defer cancel()

	id, err := svc.CreateUser(ctx, auth.Credentials{
		Username: username,
		Password: password,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create user: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("created user %s with id %s\n", username, id)
}

func keysFromEnv() (*krypto.Encryptor, krypto.Key, error) {
	rawKeys, ok := os.LookupEnv("DB_ENCRYPTION_KEYS")
	if !ok {
		return nil, krypto.Key{}, fmt.Errorf("missing required env variable DB_ENCRYPTION_KEYS")
	}

	var keys []krypto.Key
	for _, part := range strings.Split(rawKeys, ",") {
		key, err := krypto.ParseKey(part)
		if err != nil {
			return nil, krypto.Key{}, fmt.Errorf("invalid env variable DB_ENCRYPTION_KEYS: %w", err)
		}
		keys = append(keys, key)
	}

	encryptor, err := krypto.NewEncryptor(keys)
	if err != nil {
		return nil, krypto.Key{}, fmt.Errorf("failed to create encryptor: %w", err)
	}

	rawIndexKey, ok := os.LookupEnv("DB_BLIND_INDEX_KEY")
	if !ok {
		return nil, krypto.Key{}, fmt.Errorf("missing required env variable DB_BLIND_INDEX_KEY")
	}

	blindIndexKey, err := krypto.ParseKey(rawIndexKey)
	if err != nil {
		return nil, krypto.Key{}, fmt.Errorf("invalid env variable DB_BLIND_INDEX_KEY: %w", err)
	}

	return encryptor, blindIndexKey, nil
}
