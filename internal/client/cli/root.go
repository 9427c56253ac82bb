package cli

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
)

func (a *App) getStatus() string {
	s := ""
	if a.userName != "" {
		s = a.userName
	}
	if s != "" {
		return fmt.Sprintf("(%s)", s)
	}
	return ""
}

// Root starts the REPL. It logs the user in first (failures leave the
// session anonymous, since most commands re-authenticate per call anyway),
// then hands off to runREPL, which blocks until the user exits or an
// authenticated BYE shuts the server down.
func (a *App) Root(ctx context.Context) {
	log.Println("Welcome to the key-value store CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	if err := a.Login(ctx); err != nil {
		log.Printf("login failed: %v", err)
	}

	runREPL(ctx, a, a.getStatus, scanner)
}
