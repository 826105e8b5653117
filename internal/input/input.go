// Package input reads per-participant lookup files.
//
// A file holds whitespace separated integers: the participant's ring id, the
// number of lookups L, then L keys in the order they are to be issued.
package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/zde37/ringlookup/pkg"
	"github.com/zde37/ringlookup/pkg/ring"
)

// Participant is the parsed input of one rank.
type Participant struct {
	Rank int
	ID   ring.ID
	Keys []ring.ID
}

// Parse reads one participant's input. Any missing or malformed value makes
// the input unavailable.
func Parse(r io.Reader) (Participant, error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)

	next := func(what string) (uint64, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return 0, fmt.Errorf("read %s: %v: %w", what, err, pkg.ErrInputUnavailable)
			}
			return 0, fmt.Errorf("missing %s: %w", what, pkg.ErrInputUnavailable)
		}
		n, err := strconv.ParseUint(sc.Text(), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse %s %q: %w", what, sc.Text(), pkg.ErrInputUnavailable)
		}
		return n, nil
	}

	id, err := next("ring id")
	if err != nil {
		return Participant{}, err
	}
	count, err := next("lookup count")
	if err != nil {
		return Participant{}, err
	}

	keys := []ring.ID{}
	for i := uint64(0); i < count; i++ {
		k, err := next(fmt.Sprintf("key %d", i))
		if err != nil {
			return Participant{}, err
		}
		keys = append(keys, ring.ID(k))
	}

	return Participant{ID: ring.ID(id), Keys: keys}, nil
}

// Load parses the input file at path.
func Load(path string) (Participant, error) {
	f, err := os.Open(path)
	if err != nil {
		return Participant{}, fmt.Errorf("cannot open %s: %v: %w", path, err, pkg.ErrInputUnavailable)
	}
	defer f.Close()

	p, err := Parse(f)
	if err != nil {
		return Participant{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// FileName returns the input file of rank inside dir.
func FileName(dir, pattern string, rank int) string {
	return filepath.Join(dir, fmt.Sprintf(pattern, rank))
}

// LoadAll loads the inputs of ranks 0..n-1. The first missing or malformed
// file aborts the whole load.
func LoadAll(dir, pattern string, n int) ([]Participant, error) {
	if n <= 0 {
		return nil, fmt.Errorf("no participants: %w", pkg.ErrInputUnavailable)
	}

	out := make([]Participant, 0, n)
	for rank := 0; rank < n; rank++ {
		p, err := Load(FileName(dir, pattern, rank))
		if err != nil {
			return nil, fmt.Errorf("rank %d: %w", rank, err)
		}
		p.Rank = rank
		out = append(out, p)
	}
	return out, nil
}

// Discover counts the consecutive input files present from rank 0.
func Discover(dir, pattern string) (int, error) {
	n := 0
	for {
		_, err := os.Stat(FileName(dir, pattern, n))
		if errors.Is(err, os.ErrNotExist) {
			return n, nil
		}
		if err != nil {
			return 0, fmt.Errorf("stat rank %d: %v: %w", n, err, pkg.ErrInputUnavailable)
		}
		n++
	}
}
