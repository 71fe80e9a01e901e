package criterion

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidSelection = errors.New("criteria must be numbers from 1 to 6 or \"все\"")

// All returns the indices of every criterion in order.
func All() []int {
	out := make([]int, Count)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// ParseSelection reads criteria the way the chat bot collects them: "все"
// (or "all") selects everything, otherwise numbers separated by spaces or commas.
func ParseSelection(input string) ([]int, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "все" || input == "all" {
		return All(), nil
	}

	fields := strings.Fields(strings.ReplaceAll(input, ",", " "))
	if len(fields) == 0 {
		return nil, ErrInvalidSelection
	}

	out := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 1 || n > Count {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSelection, f)
		}
		out = append(out, n)
	}
	return out, nil
}

// ParseURLs splits a comma-separated list of auction links, dropping blanks.
func ParseURLs(input string) []string {
	var out []string
	for _, part := range strings.Split(input, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
