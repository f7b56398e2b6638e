package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/abgdnv/inventory/internal/app"
	"github.com/abgdnv/inventory/internal/catalog"
	"github.com/abgdnv/inventory/internal/config"
	"github.com/abgdnv/inventory/internal/terminal"
	"github.com/abgdnv/inventory/pkg/bootstrap"
	"github.com/abgdnv/inventory/pkg/config/configloader"
	"github.com/urfave/cli/v2"
	"golang.org/x/text/language"
)

const serviceName = "inventory"

// client holds what every command needs. store is opened in the Before hook unless already set.
type client struct {
	out      io.Writer
	store    *catalog.Store
	renderer *terminal.Renderer
	close    func()
}

func newApp(c *client) *cli.App {
	return &cli.App{
		Name:  "inventoryctl",
		Usage: "manage the product inventory from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   configloader.DefaultConfigFile,
				Usage:   "path to the YAML configuration file",
			},
		},
		Before: c.open,
		After: func(*cli.Context) error {
			if c.store != nil {
				_ = c.store.Close()
			}
			if c.close != nil {
				c.close()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "show one page of products",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "page", Aliases: []string{"p"}, Value: 1, Usage: "page number, clamped to the available pages"},
					&cli.IntFlag{Name: "page-size", Aliases: []string{"s"}, Usage: fmt.Sprintf("products per page, one of %v", catalog.PageSizes)},
				},
				Action: c.list,
			},
			{
				Name:      "add",
				Usage:     "add a product",
				ArgsUsage: "NAME PRICE",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "out-of-stock", Usage: "add the product as out of stock"},
				},
				Action: c.add,
			},
			{
				Name:      "toggle",
				Usage:     "flip the stock status of a product",
				ArgsUsage: "ID",
				Action: c.withID(func(ctx *cli.Context, id string) {
					c.store.ToggleStock(ctx.Context, id)
				}),
			},
			{
				Name:      "mark",
				Usage:     "flip the marked flag of a product",
				ArgsUsage: "ID",
				Action: c.withID(func(ctx *cli.Context, id string) {
					c.store.ToggleMark(ctx.Context, id)
				}),
			},
			{
				Name:      "delete",
				Usage:     "remove a product",
				ArgsUsage: "ID",
				Action: c.withID(func(ctx *cli.Context, id string) {
					c.store.Delete(ctx.Context, id)
				}),
			},
		},
	}
}

// open loads the client configuration and the catalog from storage.
func (c *client) open(ctx *cli.Context) error {
	if c.renderer == nil {
		c.renderer = terminal.NewRenderer(language.Vietnamese)
	}
	if c.store != nil {
		return nil
	}

	cfg, err := configloader.LoadFile[*config.ClientConfig](serviceName, ctx.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := bootstrap.NewLoggerTo(os.Stderr, cfg.Log.Level)

	storage, closeStorage, err := app.NewStorage(ctx.Context, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	c.close = closeStorage

	store := catalog.NewStore(storage, logger,
		catalog.WithKey(cfg.Storage.Key),
		catalog.WithPageSize(cfg.Catalog.PageSize),
		catalog.WithSeed(cfg.Catalog.SeedProducts()),
	)
	if err := store.Load(ctx.Context); err != nil {
		return err
	}
	c.store = store
	return nil
}

func (c *client) list(ctx *cli.Context) error {
	if ctx.IsSet("page-size") {
		if err := c.store.SetPageSize(ctx.Int("page-size")); err != nil {
			return err
		}
	}
	c.store.SetPage(ctx.Int("page"))
	return c.renderer.Render(c.out, c.store.View())
}

func (c *client) add(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		return fmt.Errorf("add expects NAME and PRICE, got %d arguments", ctx.NArg())
	}
	p, err := c.store.Add(ctx.Context, ctx.Args().Get(0), ctx.Args().Get(1), !ctx.Bool("out-of-stock"))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.out, "Added %s (%s, %s)\n", p.Name, c.renderer.FormatPrice(p.Price), p.ID)
	return err
}

// withID validates the single ID argument, runs fn and shows the first page.
func (c *client) withID(fn func(ctx *cli.Context, id string)) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		id := strings.TrimSpace(ctx.Args().First())
		if ctx.NArg() != 1 || id == "" {
			return fmt.Errorf("%s expects exactly one product ID", ctx.Command.Name)
		}
		fn(ctx, id)
		return c.renderer.Render(c.out, c.store.View())
	}
}
