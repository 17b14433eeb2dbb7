package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"holdings-imports-backend/internal/client"
	"holdings-imports-backend/internal/filterstate"

	"github.com/spf13/cobra"
)

const browseHelp = `commands:
  set <field> [value]   set or clear a filter (scheme, instrument, isin, from, to,
                        modifiedFrom, modifiedTo, quantityMin, quantityMax,
                        pctToNavMin, pctToNavMax, ytmMin, ytmMax, mvMin, mvMax)
  ratings [a,b,...]     select ratings, empty clears
  page <n> | next | prev
  limit <n>
  reset
  quit`

var errQuit = errors.New("quit")

func (a *app) browseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Interactively filter and page through imports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &lockedWriter{w: cmd.OutOrStdout()}
			expired := make(chan struct{})
			var once sync.Once

			c := a.client(client.WithUnauthorizedHandler(func() {
				once.Do(func() { close(expired) })
			}))
			loader := filterstate.NewLoader(c, func(s filterstate.State) { renderState(out, s) })
			defer loader.Close()

			ctx := cmd.Context()
			agg := filterstate.NewAggregator(a.debounce(), func(b client.FilterBundle) { loader.Load(ctx, b) })
			defer agg.Close()

			fmt.Fprintln(out, browseHelp)
			agg.Emit()

			lines := make(chan string)
			go func() {
				defer close(lines)
				sc := bufio.NewScanner(cmd.InOrStdin())
				for sc.Scan() {
					lines <- sc.Text()
				}
			}()

			for {
				select {
				case <-expired:
					return errSessionExpired
				case <-ctx.Done():
					return nil
				case line, ok := <-lines:
					if !ok {
						loader.Wait()
						return nil
					}
					err := runCommand(agg, line)
					if errors.Is(err, errQuit) {
						return nil
					}
					if err != nil {
						fmt.Fprintln(out, err)
					}
				}
			}
		},
	}
}

// runCommand applies one browse line to the aggregator.
func runCommand(agg *filterstate.Aggregator, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	switch cmd, rest := strings.ToLower(fields[0]), fields[1:]; cmd {
	case "quit", "exit", "q":
		return errQuit
	case "help", "?":
		return errors.New(browseHelp)
	case "reset":
		agg.Reset()
	case "next":
		agg.SetPage(agg.Bundle().Page + 1)
	case "prev":
		agg.SetPage(agg.Bundle().Page - 1)
	case "page", "limit":
		if len(rest) != 1 {
			return fmt.Errorf("usage: %s <n>", cmd)
		}
		n, err := strconv.Atoi(rest[0])
		if err != nil || n < 1 {
			return fmt.Errorf("%s: want a positive number, got %q", cmd, rest[0])
		}
		if cmd == "page" {
			agg.SetPage(n)
		} else {
			agg.SetLimit(min(n, client.MaxLimit))
		}
	case "ratings":
		var ratings []string
		for _, r := range strings.Split(strings.Join(rest, " "), ",") {
			if r = strings.TrimSpace(r); r != "" {
				ratings = append(ratings, r)
			}
		}
		agg.SetRatings(ratings)
	case "set", "clear":
		if len(rest) == 0 {
			return fmt.Errorf("usage: %s <field> [value]", cmd)
		}
		f, ok := filterstate.ParseField(rest[0])
		if !ok || f == filterstate.Ratings {
			return fmt.Errorf("unknown field %q", rest[0])
		}
		value := ""
		if cmd == "set" {
			value = strings.Join(rest[1:], " ")
		}
		if f.IsText() {
			agg.SetText(f, value)
			return nil
		}
		if value == "" {
			agg.SetNumber(f, nil)
			return nil
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s: not a number: %q", f, value)
		}
		agg.SetNumber(f, &v)
	default:
		return fmt.Errorf("unknown command %q (try help)", fields[0])
	}
	return nil
}

func renderState(w io.Writer, s filterstate.State) {
	if s.Loading {
		return
	}
	if s.Err != "" {
		fmt.Fprintln(w, "error:", s.Err)
		return
	}
	page, _ := s.Bundle.PageLimit()
	renderPage(w, &client.Page{Items: s.Items, Total: s.Total, TotalPages: s.TotalPages}, page)
}

// lockedWriter lets the loader goroutine and the prompt share stdout.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
