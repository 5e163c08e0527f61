package cli

import (
	"context"
	"flag"
	"fmt"
	"log"
	"runtime/debug"
	"strings"
	"time"

	"github.com/altzarra/songsmith"
	"github.com/altzarra/songsmith/pkg/cmd/generate"
	"github.com/altzarra/songsmith/pkg/cmd/metadata"
	"github.com/altzarra/songsmith/pkg/cmd/migrate"
	"github.com/altzarra/songsmith/pkg/cmd/setting"
	"github.com/altzarra/songsmith/pkg/songapi"
	"github.com/peterbourgon/ff/ffyaml"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
)

func New(version, commit, date string) *ffcli.Command {
	fs := flag.NewFlagSet("songsmith", flag.ExitOnError)

	return &ffcli.Command{
		ShortUsage: "songsmith [flags] <subcommand>",
		FlagSet:    fs,
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
		Subcommands: []*ffcli.Command{
			newVersionCommand(version, commit, date),
			newSongCommand(),
			newMetadataCommand(),
			newGenerateCommand(),
			newMigrateCommand(),
			newSettingCommand(),
		},
	}
}

func newVersionCommand(version, commit, date string) *ffcli.Command {
	return &ffcli.Command{
		Name:       "version",
		ShortUsage: "songsmith version",
		ShortHelp:  "print version",
		Exec: func(ctx context.Context, args []string) error {
			v := version
			if v == "" {
				if buildInfo, ok := debug.ReadBuildInfo(); ok {
					v = buildInfo.Main.Version
				}
			}
			if v == "" {
				v = "dev"
			}
			versionFields := []string{v}
			if commit != "" {
				versionFields = append(versionFields, commit)
			}
			if date != "" {
				versionFields = append(versionFields, date)
			}
			fmt.Println(strings.Join(versionFields, " "))
			return nil
		},
	}
}

func newSongCommand() *ffcli.Command {
	cmd := "song"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &songsmith.Config{}
	fs.StringVar(&cfg.Key, "key", "", "song generation api key")
	fs.StringVar(&cfg.Host, "host", "", "song generation api host")
	fs.StringVar(&cfg.Proxy, "proxy", "", "proxy to use")
	fs.DurationVar(&cfg.Wait, "wait", 1*time.Second, "minimum wait between api calls")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", 5*time.Second, "wait between status polls")
	fs.DurationVar(&cfg.MaxWait, "max-wait", 0, "maximum wait for the job to finish (0 means no limit)")
	fs.DurationVar(&cfg.MaxDuration, "max-duration", 0, "cap for the reported song duration (0 means no cap)")
	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.BoolVar(&cfg.Dummy, "dummy", false, "dummy mode, no real api calls")

	req := &songapi.GenerateRequest{}
	var tags string
	fs.StringVar(&req.Prompt, "prompt", "", "prompt to generate the song")
	fs.StringVar(&req.Style, "style", "", "style of the song")
	fs.StringVar(&req.Title, "title", "", "title for the song")
	fs.StringVar(&tags, "tags", "", "comma separated tags")
	fs.StringVar(&req.Lyrics, "lyrics", "", "lyrics for the song")
	fs.StringVar(&req.ModelVersion, "model", "", "model version")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("songsmith %s [flags]", cmd),
		Options: []ff.Option{
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ffyaml.Parser),
			ff.WithEnvVarPrefix("SONGSMITH"),
		},
		ShortHelp: fmt.Sprintf("songsmith %s command", cmd),
		FlagSet:   fs,
		Exec: func(ctx context.Context, args []string) error {
			if tags != "" {
				req.Tags = strings.Split(tags, ",")
			}
			song, err := songsmith.GenerateSong(ctx, cfg, req)
			if err != nil {
				return err
			}
			log.Printf("song %s generated\n", song.MusicID)
			return nil
		},
	}
}

func newMetadataCommand() *ffcli.Command {
	cmd := "metadata"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &metadata.Config{}
	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.Proxy, "proxy", "", "proxy to use")
	fs.StringVar(&cfg.Key, "key", "", "openai api key")
	fs.StringVar(&cfg.Model, "model", "", "openai model")
	fs.StringVar(&cfg.Host, "host", "", "openai api host")
	fs.StringVar(&cfg.Idea, "idea", "", "song idea")
	fs.StringVar(&cfg.Input, "input", "", "file with one idea per line")
	fs.StringVar(&cfg.Output, "output", "", "output file (default stdout)")
	fs.IntVar(&cfg.Limit, "limit", 0, "limit the number of ideas (0 means no limit)")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("songsmith %s [flags]", cmd),
		Options: []ff.Option{
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ffyaml.Parser),
			ff.WithEnvVarPrefix("SONGSMITH"),
		},
		ShortHelp: fmt.Sprintf("songsmith %s command", cmd),
		FlagSet:   fs,
		Exec: func(ctx context.Context, args []string) error {
			return metadata.Run(ctx, cfg)
		},
	}
}

func newGenerateCommand() *ffcli.Command {
	cmd := "generate"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &generate.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.DBType, "db-type", "", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")
	fs.DurationVar(&cfg.Timeout, "timeout", 0, "timeout for the process (0 means no timeout)")
	fs.IntVar(&cfg.Concurrency, "concurrency", 1, "number of concurrent processes")
	fs.IntVar(&cfg.Limit, "limit", 0, "limit the number iterations (0 means no limit)")
	fs.DurationVar(&cfg.WaitMin, "wait-min", 3*time.Second, "minimum wait time between songs")
	fs.DurationVar(&cfg.WaitMax, "wait-max", 1*time.Minute, "maximum wait time between songs")
	fs.StringVar(&cfg.Proxy, "proxy", "", "proxy to use")

	fs.StringVar(&cfg.Account, "account", "", "account to use")
	fs.StringVar(&cfg.Key, "key", "", "song generation api key (overrides the stored one)")
	fs.StringVar(&cfg.Host, "host", "", "song generation api host")
	fs.BoolVar(&cfg.Dummy, "dummy", false, "dummy mode, no real api calls")

	fs.StringVar(&cfg.Input, "input", "", "csv or yaml with generation templates (fields: weight,prompt,style,title,tags,lyrics,model)")
	fs.StringVar(&cfg.Prompt, "prompt", "", "prompt to use")
	fs.StringVar(&cfg.Style, "style", "", "style to use")
	fs.StringVar(&cfg.Title, "title", "", "title to use")
	fs.StringVar(&cfg.Tags, "tags", "", "comma separated tags")
	fs.StringVar(&cfg.Lyrics, "lyrics", "", "lyrics to use")
	fs.StringVar(&cfg.Model, "model", "", "model version to use")
	fs.StringVar(&cfg.Notes, "notes", "", "text notes stored with the generation")

	fs.DurationVar(&cfg.PollInterval, "poll-interval", 5*time.Second, "wait between status polls")
	fs.DurationVar(&cfg.MaxWait, "max-wait", 0, "maximum wait for a job to finish (0 means no limit)")
	fs.DurationVar(&cfg.MaxDuration, "max-duration", 0, "cap for the reported song duration (0 means no cap)")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("songsmith %s [flags]", cmd),
		Options: []ff.Option{
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ffyaml.Parser),
			ff.WithEnvVarPrefix("SONGSMITH"),
		},
		ShortHelp: fmt.Sprintf("songsmith %s action", cmd),
		FlagSet:   fs,
		Exec: func(ctx context.Context, args []string) error {
			return generate.Run(ctx, cfg)
		},
	}
}

func newMigrateCommand() *ffcli.Command {
	cmd := "migrate"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &migrate.Config{}

	fs.StringVar(&cfg.DBType, "db-type", "", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("songsmith %s [flags]", cmd),
		Options: []ff.Option{
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ffyaml.Parser),
			ff.WithEnvVarPrefix("SONGSMITH"),
		},
		ShortHelp: fmt.Sprintf("songsmith %s action", cmd),
		FlagSet:   fs,
		Exec: func(ctx context.Context, args []string) error {
			return migrate.Run(ctx, cfg)
		},
	}
}

func newSettingCommand() *ffcli.Command {
	cmd := "setting"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &setting.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.DBType, "db-type", "", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")
	fs.StringVar(&cfg.Service, "service", "", "songapi or openai")
	fs.StringVar(&cfg.Account, "account", "", "account name")
	fs.StringVar(&cfg.Value, "value", "", "value to set")
	fs.StringVar(&cfg.Type, "type", "key", "value type")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("songsmith %s [flags]", cmd),
		Options: []ff.Option{
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ffyaml.Parser),
			ff.WithEnvVarPrefix("SONGSMITH"),
		},
		ShortHelp: fmt.Sprintf("songsmith %s action", cmd),
		FlagSet:   fs,
		Exec: func(ctx context.Context, args []string) error {
			return setting.Run(ctx, cfg)
		},
	}
}
