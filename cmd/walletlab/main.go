// Command walletlab evaluates the trading profitability of Solana wallets.
//
// Subcommands:
//
//	serve    run the session API and launch workers
//	session  run one session worker (launch contract: wallet, session id, config, slot)
//	slots    inspect or force-release execution slots
package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
