package collector

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrNoTickers means the ticker-list provider produced nothing to screen.
var ErrNoTickers = errors.New("no tickers")

// TickerProvider returns the screening universe.
type TickerProvider interface {
	Tickers(ctx context.Context) ([]string, error)
}

// StaticTickers is a fixed ticker list, typically from config.
type StaticTickers []string

func (s StaticTickers) Tickers(_ context.Context) ([]string, error) {
	out := NormalizeTickers(s)
	if len(out) == 0 {
		return nil, ErrNoTickers
	}
	return out, nil
}

// FileTickers reads a ticker list from disk. The file is either one symbol per line
// (blank lines and # comments ignored) or a CSV whose header has a "Symbol" column.
type FileTickers struct {
	Path string
}

func (f FileTickers) Tickers(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open ticker list: %w", err)
	}
	defer file.Close()

	raw, err := readTickers(file)
	if err != nil {
		return nil, fmt.Errorf("read ticker list %s: %w", f.Path, err)
	}
	out := NormalizeTickers(raw)
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", f.Path, ErrNoTickers)
	}
	return out, nil
}

func readTickers(r io.Reader) ([]string, error) {
	br := bufio.NewReader(r)
	first, err := br.Peek(512)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, err
	}
	header, _, _ := strings.Cut(string(first), "\n")
	if strings.Contains(header, ",") {
		return readCSVTickers(br)
	}

	var out []string
	sc := bufio.NewScanner(br)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}

func readCSVTickers(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, err
	}
	col := -1
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), "symbol") {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, errors.New(`csv header has no "Symbol" column`)
	}
	var out []string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if col < len(rec) {
			out = append(out, rec[col])
		}
	}
	return out, nil
}

// NormalizeTickers trims and upper-cases symbols, replaces "." with "-" (BRK.B -> BRK-B)
// and drops blanks and duplicates, keeping first-seen order.
func NormalizeTickers(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.ToUpper(strings.TrimSpace(t))
		t = strings.ReplaceAll(t, ".", "-")
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
