// force-password-reset sets an account's password directly, without a reset
// code. It talks to the configured storage and sends no email.
//
//	force-password-reset -config_folder config -account alice -password 'n3w-passw0rd'
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/itchan-dev/accounts/backend/internal/setup"
	"github.com/itchan-dev/accounts/shared/config"
	"github.com/itchan-dev/accounts/shared/domain"
	"github.com/itchan-dev/accounts/shared/logger"
)

func main() {
	var configFolder, account, password string
	var generate bool
	flag.StringVar(&configFolder, "config_folder", "config", "path to folder with configs")
	flag.StringVar(&account, "account", "", "account id or username")
	flag.StringVar(&password, "password", "", "new password")
	flag.BoolVar(&generate, "generate", false, "generate a random password and print it")
	flag.Parse()

	if account == "" || (password == "") == !generate {
		fmt.Fprintln(os.Stderr, "usage: force-password-reset -account <id|username> (-password <password> | -generate)")
		os.Exit(2)
	}

	cfg := config.MustLoad(configFolder)
	logger.Initialize("warn", false)

	deps, err := setup.SetupForTool(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setup failed: %v\n", err)
		os.Exit(1)
	}
	defer deps.Close()

	id, err := resolveAccount(deps, account)
	if err != nil {
		fmt.Fprintf(os.Stderr, "account %q: %v\n", account, err)
		os.Exit(1)
	}

	if generate {
		password, err = deps.Passwords.Generate()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to generate password: %v\n", err)
			os.Exit(1)
		}
	}
	if err := deps.Reset.ForcePasswordReset(id, password); err != nil {
		fmt.Fprintf(os.Stderr, "reset failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("password of %s updated\n", id)
	if generate {
		fmt.Printf("new password: %s\n", password)
	}
}

func resolveAccount(deps *setup.Dependencies, account string) (domain.AccountId, error) {
	if id, err := uuid.Parse(account); err == nil {
		a, err := deps.Credentials.GetById(id)
		return a.Id, err
	}
	a, err := deps.Credentials.GetByUsername(account)
	return a.Id, err
}
