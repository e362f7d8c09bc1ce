package parser

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ComicStans-dev/astro-session-reporter/pkg/session"
)

const (
	fitsBlockSize = 2880
	fitsCardSize  = 80

	// maxHeaderBlocks bounds how far we read looking for the END card.
	maxHeaderBlocks = 64
)

// ImageHeader is the primary header of one FITS file, with the fields the
// core needs pulled out and every card carried through opaquely.
type ImageHeader struct {
	// Path is the source file.
	Path string

	// Cards holds every header card in file order.
	Cards session.Header

	// DateObs is the raw DATE-OBS value for the timestamp normalizer.
	DateObs string

	// ExposureSeconds is EXPTIME (or EXPOSURE) as written in the header,
	// 0 when absent.
	ExposureSeconds float64
}

// ReadImageHeader reads the primary header of a FITS file. Only the
// header blocks are read; pixel data is never touched.
func ReadImageHeader(path string) (*ImageHeader, error) {
	f, err := os.Open(path) // #nosec G304 -- user-provided paths are expected
	if err != nil {
		return nil, fmt.Errorf("opening image %s: %w", path, err)
	}
	defer f.Close()

	hdr := &ImageHeader{Path: path}
	block := make([]byte, fitsBlockSize)
	done := false

	for b := 0; b < maxHeaderBlocks && !done; b++ {
		if _, err := io.ReadFull(f, block); err != nil {
			return nil, fmt.Errorf("reading header of %s: %w", path, err)
		}

		if b == 0 && !strings.HasPrefix(string(block[:fitsCardSize]), "SIMPLE ") {
			return nil, fmt.Errorf("%s: not a FITS file", path)
		}

		for i := 0; i < fitsBlockSize; i += fitsCardSize {
			card := string(block[i : i+fitsCardSize])
			if strings.TrimRight(card, " ") == "END" {
				done = true
				break
			}
			if key, value, ok := parseCard(card); ok {
				hdr.Cards = hdr.Cards.Set(key, value)
			}
		}
	}
	if !done {
		return nil, fmt.Errorf("%s: no END card within %d header blocks", path, maxHeaderBlocks)
	}

	if v, ok := hdr.Cards.Get("DATE-OBS"); ok {
		hdr.DateObs = v
	}
	for _, key := range []string{"EXPTIME", "EXPOSURE"} {
		if v, ok := hdr.Cards.Get(key); ok {
			if secs, err := strconv.ParseFloat(v, 64); err == nil {
				hdr.ExposureSeconds = secs
				break
			}
		}
	}

	return hdr, nil
}

// parseCard splits one 80-byte card into keyword and value. Comment-only
// and blank cards are dropped; the trailing "/ comment" of value cards is
// stripped, quoted strings are unquoted.
func parseCard(card string) (string, string, bool) {
	key := strings.TrimRight(card[:8], " ")
	if key == "" || key == "COMMENT" || key == "HISTORY" {
		return "", "", false
	}
	if card[8:10] != "= " {
		return "", "", false
	}

	value := strings.TrimSpace(card[10:])
	if strings.HasPrefix(value, "'") {
		// String value: find the closing quote ('' escapes one).
		end := 1
		for end < len(value) {
			if value[end] == '\'' {
				if end+1 < len(value) && value[end+1] == '\'' {
					end += 2
					continue
				}
				break
			}
			end++
		}
		if end < len(value) {
			return key, strings.TrimRight(strings.ReplaceAll(value[1:end], "''", "'"), " "), true
		}
		return key, strings.TrimRight(value[1:], " "), true
	}

	if i := strings.IndexByte(value, '/'); i >= 0 {
		value = strings.TrimSpace(value[:i])
	}
	return key, value, true
}
