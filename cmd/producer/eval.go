package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dontdude/tiobot/internal/config"
	"github.com/dontdude/tiobot/internal/domain"
	"github.com/dontdude/tiobot/internal/eval"
	"github.com/dontdude/tiobot/internal/platform/queue"
	"github.com/dontdude/tiobot/internal/source"
)

var (
	evalFile    string
	evalLink    string
	evalLocal   bool
	evalWait    time.Duration
	evalUser    string
	evalMention string
)

var evalCmd = &cobra.Command{
	Use:   "eval <language> [code...]",
	Short: "Evaluate code on the remote execution provider",
	Long: `Builds an eval invocation exactly as a chat command would: the words after the
language are the message text, so --wrapped, --stats and option lines work as usual.

By default the invocation is published to the Redis stream and, with --wait, the
rendered response is printed once a worker answers. --local runs the pipeline in
this process instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEval,
}

func init() {
	evalCmd.Flags().StringVar(&evalFile, "file", "", "read the code from a local file")
	evalCmd.Flags().StringVar(&evalLink, "link", "", "fetch the code from a hastebin or gist link")
	evalCmd.Flags().BoolVar(&evalLocal, "local", false, "run the pipeline in-process instead of queueing")
	evalCmd.Flags().DurationVar(&evalWait, "wait", 0, "wait this long for the queued result")
	evalCmd.Flags().StringVar(&evalUser, "user", "cli", "user id the invocation is attributed to")
	evalCmd.Flags().StringVar(&evalMention, "mention", "", "mention echoed back in the response")
}

func runEval(cmd *cobra.Command, args []string) error {
	inv, err := buildInvocation(args, evalFile, evalLink)
	if err != nil {
		return err
	}
	inv.UserID, inv.Mention = evalUser, evalMention

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute+evalWait)
	defer cancel()

	if evalLocal {
		resp, err := runLocal(ctx, cfg, inv)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), resp)
	}
	return runQueued(ctx, cmd.OutOrStdout(), inv)
}

// buildInvocation turns CLI arguments into the invocation a chat message would produce.
// A file is sent as message text; a link is appended as the trailing link= token.
func buildInvocation(args []string, file, link string) (domain.Invocation, error) {
	inv := domain.Invocation{
		ID:       uuid.NewString(),
		Language: args[0],
		Code:     strings.Join(args[1:], " "),
	}

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return domain.Invocation{}, fmt.Errorf("failed to read %s: %w", file, err)
		}
		inv.Code = strings.TrimSpace(inv.Code + "\n" + string(data))
	}
	if link != "" {
		inv.Code = strings.TrimSpace(inv.Code + " " + source.LinkMarker + link)
	}
	return inv, nil
}

func runLocal(ctx context.Context, cfg *config.Config, inv domain.Invocation) (domain.Response, error) {
	tables, err := config.LoadTables(cfg.ResourcesDir)
	if err != nil {
		return domain.Response{}, err
	}

	p := eval.NewPipeline(cfg, tables)
	if err := p.Refresher.Refresh(ctx); err != nil {
		return domain.Response{}, err
	}
	return p.Dispatcher.Dispatch(ctx, inv), nil
}

func runQueued(ctx context.Context, out io.Writer, inv domain.Invocation) error {
	rdb, err := queue.Dial(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer rdb.Close()

	q := queue.NewRedisQueue(rdb, queue.Options{
		Stream:         cfg.Stream,
		Group:          cfg.Group,
		ResultsChannel: cfg.ResultsChannel,
	})

	// Subscribe before publishing so a fast worker cannot answer unseen.
	var results <-chan domain.JobResult
	if evalWait > 0 {
		if results, err = q.SubscribeResults(ctx); err != nil {
			return err
		}
	}

	job := domain.Job{ID: uuid.NewString(), Invocation: inv}
	slog.Info("Publishing job", "jobID", job.ID, "language", inv.Language)
	if err := q.Publish(ctx, job); err != nil {
		return err
	}

	if results == nil {
		return printJSON(out, map[string]string{"job_id": job.ID, "status": "queued"})
	}

	timeout := time.After(evalWait)
	for {
		select {
		case result, ok := <-results:
			if !ok {
				return ctx.Err()
			}
			if result.JobID == job.ID {
				return printJSON(out, result.Response)
			}
		case <-timeout:
			return fmt.Errorf("no result for job %s within %s", job.ID, evalWait)
		}
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
