package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"

	"github.com/locvowork/excelstream/internal/bootstrap"
	"github.com/locvowork/excelstream/internal/logger"
	"github.com/locvowork/excelstream/internal/service"
	"github.com/locvowork/excelstream/pkg/simpleexcel"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	app := &cli.Command{
		Name:            "excelstream",
		Usage:           "streams reports into xlsx workbooks",
		HideHelpCommand: true,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Runs the export HTTP API",
				Action: serve,
			},
			{
				Name:      "demo",
				Usage:     "Writes the generated payroll demo workbook",
				ArgsUsage: "DESTINATION",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "rows", Value: 1000, Usage: "number of employee `ROWS`"},
				},
				Action: demo,
			},
			{
				Name:  "render",
				Usage: "Renders a YAML report template with JSON data",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "template", Aliases: []string{"t"}, Required: true, Usage: "report template `FILE` (YAML)"},
					&cli.StringFlag{Name: "data", Aliases: []string{"d"}, Usage: "`FILE` with rows per sheet id (JSON)"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "report.xlsx", Usage: "destination `FILE`"},
				},
				Action: render,
			},
			{
				Name:      "read",
				Usage:     "Dumps a worksheet as JSON rows keyed by header",
				ArgsUsage: "SOURCE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "sheet", Usage: "worksheet `NAME`, first sheet when absent"},
					&cli.IntFlag{Name: "header-row", Usage: "1-based header `ROW`, detected when absent"},
				},
				Action: read,
			},
		},
	}

	err := app.Run(ctx, os.Args)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "\n*** ERROR ***\n\n%v\n", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, _ *cli.Command) error {
	app := bootstrap.NewApp()
	if err := app.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	go func() {
		<-ctx.Done()
		_ = app.Echo.Shutdown(context.Background())
	}()
	if err := app.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.ErrorLog(ctx, "Application failed: %v", err)
		return err
	}
	return nil
}

// create opens path for writing and returns a close func that reports the
// first failure.
func create(path string) (*os.File, func(error) error, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func(err error) error {
		err = multierr.Append(err, f.Close())
		if err != nil {
			_ = os.Remove(path)
		}
		return err
	}, nil
}

func demo(ctx context.Context, cmd *cli.Command) error {
	dst := cmd.Args().Get(0)
	if dst == "" {
		dst = "payroll-demo.xlsx"
	}
	deps, err := bootstrap.Configure(ctx)
	if err != nil {
		return err
	}
	f, done, err := create(dst)
	if err != nil {
		return err
	}
	err = service.NewExportService(deps).ExportDemo(ctx, f, int(cmd.Int("rows")))
	if err = done(err); err == nil {
		logger.InfoLog(ctx, "wrote %s", dst)
	}
	return err
}

func render(ctx context.Context, cmd *cli.Command) error {
	src, err := os.ReadFile(cmd.String("template"))
	if err != nil {
		return fmt.Errorf("unable to read template: %w", err)
	}
	req := service.TemplateRequest{Template: string(src)}
	if path := cmd.String("data"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("unable to read data: %w", err)
		}
		if err := json.Unmarshal(b, &req.Data); err != nil {
			return fmt.Errorf("unable to decode data %s: %w", path, err)
		}
	}

	deps, err := bootstrap.Configure(ctx)
	if err != nil {
		return err
	}
	dst := cmd.String("out")
	f, done, err := create(dst)
	if err != nil {
		return err
	}
	err = service.NewExportService(deps).ExportTemplate(ctx, f, req)
	if err = done(err); err == nil {
		logger.InfoLog(ctx, "wrote %s", dst)
	}
	return err
}

func read(ctx context.Context, cmd *cli.Command) error {
	src := cmd.Args().Get(0)
	if src == "" {
		return errors.New("no input workbook has been specified")
	}
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	var opts []simpleexcel.ReadOption
	if n := cmd.Int("header-row"); n > 0 {
		opts = append(opts, simpleexcel.WithHeaderRow(int(n)))
	}
	rows, err := simpleexcel.ReadMaps(f, cmd.String("sheet"), opts...)
	if err != nil {
		return err
	}
	return dump(os.Stdout, rows)
}

func dump(w io.Writer, rows []map[string]string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
