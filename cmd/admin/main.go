// Package main provides admin management utilities for yatube.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"yatube/internal/bootstrap"
	"yatube/internal/cache"
	"yatube/internal/config"
	"yatube/internal/models"
	"yatube/internal/repository"
	"yatube/internal/validation"

	"github.com/fatih/color"
)

const usage = `Usage:
  go run ./cmd/admin create-group <slug> <title> [description]  - Create a group
  go run ./cmd/admin delete-group <slug>                        - Delete a group, its posts stay ungrouped
  go run ./cmd/admin list-groups [page]                         - List groups, reverse alphabetical
  go run ./cmd/admin list-follows [page]                        - List follow relations
  go run ./cmd/admin delete-user <username>                     - Delete a user with their posts
  go run ./cmd/admin posts-search <text>                        - Find posts containing text
  go run ./cmd/admin cache-clear                                - Drop cached index pages`

var errUsage = errors.New("invalid arguments")

type admin struct {
	groups  repository.GroupRepository
	posts   repository.PostRepository
	users   repository.UserRepository
	follows repository.FollowRepository
	pages   cache.PageStore
	out     io.Writer
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	pages, err := cache.NewPageStore(rdb)
	if err != nil {
		log.Fatalf("Failed to open page cache: %v", err)
	}

	a := &admin{
		groups:  repository.NewGroupRepository(db),
		posts:   repository.NewPostRepository(db),
		users:   repository.NewUserRepository(db),
		follows: repository.NewFollowRepository(db),
		pages:   pages,
		out:     os.Stdout,
	}

	if err := a.run(context.Background(), os.Args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Println(usage)
		}
		color.Red("✗ %v", err)
		os.Exit(1)
	}
}

func (a *admin) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "create-group":
		if len(args) < 3 {
			return errUsage
		}
		return a.createGroup(ctx, args[1], args[2], strings.Join(args[3:], " "))
	case "delete-group":
		if len(args) != 2 {
			return errUsage
		}
		return a.deleteGroup(ctx, args[1])
	case "list-groups":
		return a.listGroups(ctx, pageArg(args))
	case "list-follows":
		return a.listFollows(ctx, pageArg(args))
	case "delete-user":
		if len(args) != 2 {
			return errUsage
		}
		return a.deleteUser(ctx, args[1])
	case "posts-search":
		if len(args) < 2 {
			return errUsage
		}
		return a.searchPosts(ctx, strings.Join(args[1:], " "))
	case "cache-clear":
		return a.clearCache(ctx)
	default:
		return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
	}
}

func (a *admin) createGroup(ctx context.Context, slug, title, description string) error {
	if err := validation.ValidateGroupSlug(slug); err != nil {
		return err
	}
	group := &models.Group{Slug: slug, Title: title, Description: description}
	if err := a.groups.Create(ctx, group); err != nil {
		return err
	}
	fmt.Fprintln(a.out, color.GreenString("✓ Created group %s (ID: %d)", group.Slug, group.ID))
	return nil
}

func (a *admin) deleteGroup(ctx context.Context, slug string) error {
	if err := a.groups.DeleteBySlug(ctx, slug); err != nil {
		return err
	}
	fmt.Fprintln(a.out, color.GreenString("✓ Deleted group %s", slug))
	return nil
}

func (a *admin) listGroups(ctx context.Context, page string) error {
	res, err := a.groups.List(ctx, page)
	if err != nil {
		return err
	}
	if res.Page.Total == 0 {
		fmt.Fprintln(a.out, color.YellowString("No groups found"))
		return nil
	}

	fmt.Fprintf(a.out, "Groups (%d), page %d of %d:\n", res.Page.Total, res.Page.Number, res.Page.NumPages)
	fmt.Fprintln(a.out, color.HiBlackString("%-6s %-24s %s", "ID", "Slug", "Title"))
	for _, g := range res.Items {
		fmt.Fprintf(a.out, "%-6d %-24s %s\n", g.ID, g.Slug, g.Title)
	}
	return nil
}

func (a *admin) listFollows(ctx context.Context, page string) error {
	res, err := a.follows.List(ctx, page)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Follows (%d), page %d of %d:\n", res.Page.Total, res.Page.Number, res.Page.NumPages)
	for _, f := range res.Items {
		fmt.Fprintln(a.out, f.String())
	}
	return nil
}

func (a *admin) deleteUser(ctx context.Context, username string) error {
	user, err := a.users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if err := a.users.Delete(ctx, user.ID); err != nil {
		return err
	}
	fmt.Fprintln(a.out, color.GreenString("✓ Deleted user %s (ID: %d)", user.Username, user.ID))
	return nil
}

func (a *admin) searchPosts(ctx context.Context, text string) error {
	res, err := a.posts.Search(ctx, text, "")
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Found %d post(s), showing page 1 of %d:\n", res.Page.Total, res.Page.NumPages)
	for _, p := range res.Items {
		fmt.Fprintf(a.out, "%s %s: %s\n",
			color.HiBlackString("#%d", p.ID), p.Author.Username, excerpt(p.Text, 60))
	}
	return nil
}

func (a *admin) clearCache(ctx context.Context) error {
	if err := a.pages.Clear(ctx, cache.IndexPagePrefix); err != nil {
		return err
	}
	fmt.Fprintln(a.out, color.GreenString("✓ Index page cache cleared"))
	return nil
}

func pageArg(args []string) string {
	if len(args) > 1 {
		return args[1]
	}
	return ""
}

func excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
