package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/park285/cheese-engine-bridge/pkg/bridgedto"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var (
	analyzeReq    bridgedto.AnalyzeRequest
	analyzeRating int

	reviewFENs []string
	reviewFile string
	reviewOpts bridgedto.ReviewOptions

	openingFEN string

	analyzeCmd = &cobra.Command{
		Use:   "analyze",
		Short: "Pick a move for a position",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd, func(ctx context.Context, b backend) (any, error) {
				if analyzeRating > 0 {
					if _, err := b.SetStrength(ctx, analyzeRating); err != nil {
						return nil, err
					}
				}
				return b.Analyze(ctx, analyzeReq)
			})
		},
	}

	reviewCmd = &cobra.Command{
		Use:   "review",
		Short: "Review a game given as one FEN per position",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fens, err := collectFENs(reviewFENs, reviewFile)
			if err != nil {
				return err
			}
			return withBackend(cmd, func(ctx context.Context, b backend) (any, error) {
				return b.Review(ctx, bridgedto.ReviewRequest{FENs: fens, Options: reviewOpts})
			})
		},
	}

	openingCmd = &cobra.Command{
		Use:   "opening",
		Short: "Name the opening and list book moves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd, func(ctx context.Context, b backend) (any, error) {
				return b.Opening(ctx, openingFEN)
			})
		},
	}

	capabilitiesCmd = &cobra.Command{
		Use:     "capabilities",
		Aliases: []string{"caps"},
		Short:   "Show the engine identity, option ranges and bridge features",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd, func(ctx context.Context, b backend) (any, error) {
				return b.Capabilities(ctx)
			})
		},
	}

	strengthCmd = &cobra.Command{
		Use:   "strength <rating>",
		Short: "Set the playing strength of a running bridge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rating int
			if _, err := fmt.Sscanf(args[0], "%d", &rating); err != nil || rating <= 0 {
				return fmt.Errorf("rating must be a positive integer, got %q", args[0])
			}
			return withBackend(cmd, func(ctx context.Context, b backend) (any, error) {
				return b.SetStrength(ctx, rating)
			})
		},
	}
)

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeReq.FEN, "fen", startFEN, "position to analyze")
	f.IntVar(&analyzeReq.MoveTimeMs, "movetime", 0, "search time in ms; 0 uses the rating curve")
	f.IntVar(&analyzeReq.MultiPV, "multipv", 0, "principal variations to report")
	f.BoolVar(&analyzeReq.UseBook, "book", false, "answer from the opening book when possible")
	f.BoolVar(&analyzeReq.ForceDepthFloor, "depth-floor", false, "search to the configured minimum depth")
	f.BoolVar(&analyzeReq.HumanMode, "human", false, "choose a human-like move")
	f.StringVar(&analyzeReq.Preset, "preset", "", "play preset (level1..level8)")
	f.IntVar(&analyzeRating, "rating", 0, "apply this rating before searching")

	f = reviewCmd.Flags()
	f.StringArrayVar(&reviewFENs, "fen", nil, "position to review; repeat in game order")
	f.StringVar(&reviewFile, "file", "", "file with one FEN per line, '-' for stdin")
	f.IntVar(&reviewOpts.FastMoveTimeMs, "fast-ms", 0, "first-pass search time per position")
	f.IntVar(&reviewOpts.DeepMoveTimeMs, "deep-ms", 0, "second-pass search time")
	f.IntVar(&reviewOpts.TopK, "top", 0, "positions to deepen")
	f.IntVar(&reviewOpts.SwingThresholdCP, "swing-cp", 0, "deepen positions whose |eval| exceeds this")
	f.BoolVar(&reviewOpts.KeepStrengthLimit, "keep-limit", false, "review at the current strength instead of full strength")

	openingCmd.Flags().StringVar(&openingFEN, "fen", startFEN, "position to identify")
}

func withBackend(cmd *cobra.Command, fn func(ctx context.Context, b backend) (any, error)) error {
	b, err := openBackend()
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = b.Close(ctx)
	}()

	out, err := fn(cmd.Context(), b)
	if err != nil {
		return err
	}
	return presenter(cmd).Show(out)
}

func collectFENs(flags []string, path string) ([]string, error) {
	fens := append([]string(nil), flags...)
	if path == "" {
		if len(fens) == 0 {
			return nil, fmt.Errorf("give positions with --fen or --file")
		}
		return fens, nil
	}

	in := os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		in = f
	}
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fens = append(fens, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(fens) == 0 {
		return nil, fmt.Errorf("no positions in %s", path)
	}
	return fens, nil
}
