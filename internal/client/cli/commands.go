package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/gophkeeper/internal/common"
)

// Register prompts for a new account's credentials and creates it.
func (a *App) Register(ctx context.Context) error {
	userName, err := GetSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}
	password, err := GetPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.wire.Register(userName, string(password)); err != nil {
		return err
	}
	fmt.Println("Registered.")
	return nil
}

// Login caches a username/password pair locally and verifies it against
// the server with a cheap authenticated call (listing usernames costs
// nothing to decrypt on the client side and requires no prior state).
// There is no server-side session to establish: every later command
// re-sends these credentials on its own connection.
func (a *App) Login(ctx context.Context) error {
	userName, err := GetSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}
	password, err := GetPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if _, err := a.wire.AllUsers(userName, string(password)); err != nil {
		return err
	}

	a.userName = userName
	a.password = string(password)
	fmt.Println("Login successful.")
	return nil
}

// Logout forgets the cached credentials.
func (a *App) Logout(ctx context.Context) error {
	a.userName = ""
	a.password = ""
	return nil
}

// SetContent replaces the logged-in user's own content blob.
func (a *App) SetContent(ctx context.Context) error {
	content, err := GetMultiline(a.reader, "Enter content (double Enter to finish):", os.Stdout)
	if err != nil {
		return err
	}
	return a.wire.SetContent(a.userName, a.password, []byte(content))
}

// GetContent fetches another (or the same) user's content blob.
func (a *App) GetContent(ctx context.Context, who string) error {
	if who == "" {
		var err error
		who, err = GetSimpleText(a.reader, "Whose content?", os.Stdout)
		if err != nil {
			return err
		}
	}
	content, err := a.wire.GetContent(a.userName, a.password, who)
	if err != nil {
		return err
	}
	fmt.Println(string(content))
	return nil
}

// AllUsers lists every registered username.
func (a *App) AllUsers(ctx context.Context) error {
	users, err := a.wire.AllUsers(a.userName, a.password)
	if err != nil {
		return err
	}
	fmt.Println(string(users))
	return nil
}

// KVPut inserts key=value into the global store, failing if key exists.
func (a *App) KVPut(ctx context.Context, key, value string) error {
	return a.wire.KVInsert(a.userName, a.password, []byte(key), []byte(value))
}

// KVUpsert inserts or updates key=value, reporting which it did.
func (a *App) KVUpsert(ctx context.Context, key, value string) error {
	inserted, err := a.wire.KVUpsert(a.userName, a.password, []byte(key), []byte(value))
	if err != nil {
		return err
	}
	if inserted {
		fmt.Println("inserted")
	} else {
		fmt.Println("updated")
	}
	return nil
}

// KVGet fetches the value stored under key.
func (a *App) KVGet(ctx context.Context, key string) error {
	value, err := a.wire.KVGet(a.userName, a.password, key)
	if err != nil {
		return err
	}
	fmt.Println(string(value))
	return nil
}

// KVDelete removes key from the global store.
func (a *App) KVDelete(ctx context.Context, key string) error {
	return a.wire.KVDelete(a.userName, a.password, key)
}

// KVKeys lists every key currently in the global store.
func (a *App) KVKeys(ctx context.Context) error {
	keys, err := a.wire.KVKeys(a.userName, a.password)
	if err != nil {
		return err
	}
	fmt.Println(string(keys))
	return nil
}

// KVTop lists the most-recently-touched keys, most recent first.
func (a *App) KVTop(ctx context.Context) error {
	top, err := a.wire.KVTop(a.userName, a.password)
	if err != nil {
		return err
	}
	fmt.Println(string(top))
	return nil
}

// RegisterPlugin uploads a local executable and registers it as a
// map/reduce job under name. The caller must be the admin user.
func (a *App) RegisterPlugin(ctx context.Context, name, path string) error {
	blob, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return a.wire.RegisterPlugin(a.userName, a.password, name, blob)
}

// InvokePlugin runs the named registered plugin over the current contents
// of the global store and prints its output.
func (a *App) InvokePlugin(ctx context.Context, name string) error {
	output, err := a.wire.InvokePlugin(ctx, a.userName, a.password, name)
	if err != nil {
		return err
	}
	fmt.Println(strings.TrimSpace(string(output)))
	return nil
}

// Save asks the server to flush a snapshot. The caller must be the admin user.
func (a *App) Save(ctx context.Context) error {
	return a.wire.Save(a.userName, a.password)
}

// Bye authenticates and asks the server to drain and shut down, then
// forgets the cached credentials locally.
func (a *App) Bye(ctx context.Context) error {
	if err := a.wire.Bye(a.userName, a.password); err != nil {
		return err
	}
	a.userName, a.password = "", ""
	return nil
}
