// Command admin is a terminal client for the CMS admin API.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"

	"cmsadmin/internal/client"
	"cmsadmin/internal/models"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  admin login <email> <password>                 - Start a session")
	fmt.Println("  admin logout                                   - End the session")
	fmt.Println("  admin whoami                                   - Show the signed-in user")
	fmt.Println("  admin list <collection> [-q text] [-status s] [-category slug] [-role r]")
	fmt.Println("  admin get <collection> <id>")
	fmt.Println("  admin create <collection> <json>")
	fmt.Println("  admin update <collection> <id> <json>")
	fmt.Println("  admin delete <collection> <id>")
	fmt.Println("  admin upload <file>")
	fmt.Println("  admin settings [json]                          - Show or patch site settings")
	fmt.Println()
	fmt.Println("Collections: posts, categories, users, media. CMSADMIN_URL overrides the API address.")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	sessionPath, err := client.DefaultSessionPath()
	if err != nil {
		log.Fatalf("Failed to locate session file: %v", err)
	}
	session := client.NewSession(client.NewFileSessionStore(sessionPath))
	session.Restore()

	c := client.NewClient(os.Getenv("CMSADMIN_URL"), session, client.WithUnauthorizedHandler(func() {
		fmt.Fprintln(os.Stderr, "Session expired. Run: admin login <email> <password>")
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	command, args := os.Args[1], os.Args[2:]
	switch command {
	case "login":
		requireArgs(args, 2, "admin login <email> <password>")
		user, err := c.Login(ctx, args[0], args[1])
		if err != nil {
			log.Fatalf("Login failed: %v", err)
		}
		fmt.Printf("Signed in as %s (%s, %s)\n", user.Name, user.Email, user.Role)

	case "logout":
		if err := c.Logout(); err != nil {
			log.Fatalf("Logout failed: %v", err)
		}
		fmt.Println("Signed out")

	case "whoami":
		user, ok := session.Current()
		if !ok {
			fmt.Println("Not signed in")
			os.Exit(1)
		}
		printJSON(user)

	case "settings":
		if len(args) == 0 {
			settings, err := c.Settings().Get(ctx)
			exitOn(err)
			printJSON(settings)
			return
		}
		settings, err := c.Settings().Update(ctx, parsePayload(args[0]))
		exitOn(err)
		printJSON(settings)

	case "upload":
		requireArgs(args, 1, "admin upload <file>")
		uploadFile(ctx, c, args[0])

	case "list", "get", "create", "update", "delete":
		requireArgs(args, 1, "admin "+command+" <collection> ...")
		runCollection(ctx, c, command, args[0], args[1:])

	default:
		fmt.Printf("Unknown command: %s\n", command)
		usage()
		os.Exit(1)
	}
}

func runCollection(ctx context.Context, c *client.Client, command, collection string, args []string) {
	switch collection {
	case models.CollectionPosts:
		run(ctx, collectionPage[models.Post]{
			name: collection, api: c.Posts(), slugSource: "title",
			filter: func(items []models.Post, f filterFlags) []models.Post {
				return client.FilterPosts(items, client.PostFilter{Text: f.text, Status: f.status, Category: f.category})
			},
		}, command, args)
	case models.CollectionCategories:
		run(ctx, collectionPage[models.Category]{name: collection, api: c.Categories(), slugSource: "name"}, command, args)
	case models.CollectionUsers:
		run(ctx, collectionPage[models.User]{
			name: collection, api: c.Users(), userForm: true,
			filter: func(items []models.User, f filterFlags) []models.User {
				return client.FilterUsers(items, client.UserFilter{Text: f.text, Role: f.role})
			},
		}, command, args)
	case models.CollectionMedia:
		run(ctx, collectionPage[models.Media]{name: collection, api: c.Media()}, command, args)
	default:
		fmt.Printf("Unknown collection: %s\n", collection)
		os.Exit(1)
	}
}

type filterFlags struct {
	text, status, category, role string
}

type collectionPage[T client.Resource] struct {
	name       string
	api        *client.ResourceAPI[T]
	slugSource string
	userForm   bool
	filter     func([]T, filterFlags) []T
}

func run[T client.Resource](ctx context.Context, p collectionPage[T], command string, args []string) {
	alert := func(msg string) { fmt.Fprintln(os.Stderr, "Error:", msg) }
	ctrl := client.NewController[T](p.name, p.api, alert, nil)

	switch command {
	case "list":
		var f filterFlags
		fs := flag.NewFlagSet("list", flag.ExitOnError)
		fs.StringVar(&f.text, "q", "", "Search text")
		fs.StringVar(&f.status, "status", "", "Post status")
		fs.StringVar(&f.category, "category", "", "Post category slug")
		fs.StringVar(&f.role, "role", "", "User role")
		_ = fs.Parse(args)

		exitOn(ctrl.Load(ctx))
		items := ctrl.Items()
		if p.filter != nil {
			items = p.filter(items, f)
		}
		printJSON(items)

	case "get":
		requireArgs(args, 1, "admin get <collection> <id>")
		item, err := p.api.Get(ctx, parseID(args[0]))
		exitOn(err)
		printJSON(item)

	case "create":
		requireArgs(args, 1, "admin create <collection> <json>")
		payload := parsePayload(args[0])
		if p.slugSource != "" {
			payload = client.WithSlug(payload, p.slugSource)
		}
		exitOn(ctrl.OpenCreate())
		exitOn(ctrl.Submit(ctx, payload))
		printJSON(ctrl.Items()[0])

	case "update":
		requireArgs(args, 2, "admin update <collection> <id> <json>")
		id := parseID(args[0])
		payload := parsePayload(args[1])
		if p.userForm {
			payload = client.UserUpdatePayload(payload)
		}
		exitOn(ctrl.Load(ctx))
		exitOn(ctrl.OpenEdit(id))
		exitOn(ctrl.Submit(ctx, payload))
		for _, item := range ctrl.Items() {
			if item.RecordID() == id {
				printJSON(item)
			}
		}

	case "delete":
		requireArgs(args, 1, "admin delete <collection> <id>")
		id := parseID(args[0])
		exitOn(ctrl.Delete(ctx, id))
		fmt.Printf("Deleted %s %d\n", p.name, id)
	}
}

func uploadFile(ctx context.Context, c *client.Client, path string) {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", path, err)
	}
	defer f.Close()

	media, err := c.Upload(ctx, filepath.Base(path), mime.TypeByExtension(filepath.Ext(path)), f)
	exitOn(err)
	printJSON(media)
}

func requireArgs(args []string, n int, usageLine string) {
	if len(args) < n {
		fmt.Println("Usage:", usageLine)
		os.Exit(1)
	}
}

func parseID(raw string) int64 {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Fatalf("Invalid id %q", raw)
	}
	return id
}

func parsePayload(raw string) models.Record {
	rec, err := models.DecodeRecord([]byte(raw))
	if err != nil {
		log.Fatalf("Invalid JSON object: %v", err)
	}
	return rec
}

// exitOn stops on err. Controller failures were already reported by the alert callback.
func exitOn(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatalf("Failed to print: %v", err)
	}
}
