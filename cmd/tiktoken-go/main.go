// Command tiktoken-go encodes, decodes, and counts tokens against a
// named encoding and a locally supplied rank file.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	tiktoken "github.com/rankbpe/tiktoken"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "encode":
		err = runEncode(os.Args[2:])
	case "decode":
		err = runDecode(os.Args[2:])
	case "count":
		err = runCount(os.Args[2:])
	case "list":
		runList()
	case "specials":
		err = runSpecials(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: tiktoken-go <encode|decode|count|list|specials> [flags]")
}

// encodingFlags registers the flags the encode/decode/count/specials
// subcommands share and returns pointers to the -encoding, -rank-file
// and -text values.
func encodingFlags(fs *flag.FlagSet) (encName, rankFile, text *string) {
	encName = fs.String("encoding", "cl100k_base", "named encoding (see: tiktoken-go list)")
	rankFile = fs.String("rank-file", "", "path to the encoding's .tiktoken rank file")
	text = fs.String("text", "", "input text (decode reads comma-separated ranks instead)")
	return
}

func loadEncoding(fs *flag.FlagSet, args []string) (*tiktoken.Encoding, string, error) {
	encName, rankFile, text := encodingFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, "", err
	}
	if *rankFile == "" {
		return nil, "", fmt.Errorf("missing -rank-file")
	}
	raw, err := os.ReadFile(*rankFile)
	if err != nil {
		return nil, "", fmt.Errorf("read rank file: %w", err)
	}
	enc, err := tiktoken.New(*encName, raw)
	if err != nil {
		return nil, "", fmt.Errorf("build encoding %q: %w", *encName, err)
	}
	return enc, *text, nil
}

func runEncode(args []string) error {
	fs := flag.NewFlagSet("encode", flag.ExitOnError)
	enc, text, err := loadEncoding(fs, args)
	if err != nil {
		return err
	}
	toks, err := enc.Encode(text, tiktoken.AllForbidden())
	if err != nil {
		return err
	}
	strs := make([]string, len(toks))
	for i, t := range toks {
		strs[i] = strconv.FormatUint(uint64(t), 10)
	}
	fmt.Println(strings.Join(strs, ","))
	return nil
}

func runDecode(args []string) error {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	enc, text, err := loadEncoding(fs, args)
	if err != nil {
		return err
	}
	var toks []uint32
	for _, part := range strings.Split(strings.TrimSpace(text), ",") {
		if part == "" {
			continue
		}
		n, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid rank %q: %w", part, err)
		}
		toks = append(toks, uint32(n))
	}
	out, err := enc.Decode(toks)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func runCount(args []string) error {
	fs := flag.NewFlagSet("count", flag.ExitOnError)
	encName, rankFile, text := encodingFlags(fs)
	fast := fs.Bool("fast", false, "use the rolling-hash estimator instead of exact BPE")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *rankFile == "" {
		return fmt.Errorf("missing -rank-file")
	}
	raw, err := os.ReadFile(*rankFile)
	if err != nil {
		return fmt.Errorf("read rank file: %w", err)
	}
	enc, err := tiktoken.New(*encName, raw)
	if err != nil {
		return fmt.Errorf("build encoding %q: %w", *encName, err)
	}
	if *fast {
		fmt.Println(enc.EstimateTokens(*text))
		return nil
	}
	toks, err := enc.Encode(*text, tiktoken.AllForbidden())
	if err != nil {
		return err
	}
	fmt.Println(len(toks))
	return nil
}

func runList() {
	for _, name := range tiktoken.KnownEncodings() {
		fmt.Println(name)
	}
}

func runSpecials(args []string) error {
	fs := flag.NewFlagSet("specials", flag.ExitOnError)
	encName, rankFile, _ := encodingFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *rankFile == "" {
		return fmt.Errorf("missing -rank-file")
	}
	raw, err := os.ReadFile(*rankFile)
	if err != nil {
		return fmt.Errorf("read rank file: %w", err)
	}
	enc, err := tiktoken.New(*encName, raw)
	if err != nil {
		return fmt.Errorf("build encoding %q: %w", *encName, err)
	}
	for _, m := range enc.SpecialMarkers() {
		fmt.Println(m)
	}
	return nil
}
