// ipstakectl is a small one-shot tool that queries a running
// ipstakingd over its read-only introspection API, in the spirit of
// the teacher's single-purpose validate-supply-simple tool.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const Version = "0.1.0"

func main() {
	host := flag.String("host", "http://localhost:8080", "ipstakingd API base URL")
	query := flag.String("query", "era", "one of: era, account, ips, stakers, claimable")
	id := flag.String("id", "", "account (hex) or ip-set id, required for account/ips/stakers/claimable")
	flag.Parse()

	fmt.Printf("===============================================\n")
	fmt.Printf("  ipstakectl v%s\n", Version)
	fmt.Printf("===============================================\n\n")

	path, err := resolvePath(*query, *id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	body, err := fetch(*host + path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	var pretty map[string]interface{}
	if err := json.Unmarshal(body, &pretty); err != nil {
		fmt.Println(string(body))
		return
	}
	out, _ := json.MarshalIndent(pretty, "", "  ")
	fmt.Println(string(out))
}

func resolvePath(query, id string) (string, error) {
	switch query {
	case "era":
		return "/era", nil
	case "account":
		if id == "" {
			return "", fmt.Errorf("-id is required for query=account")
		}
		return "/account/" + id, nil
	case "claimable":
		if id == "" {
			return "", fmt.Errorf("-id is required for query=claimable")
		}
		return "/account/" + id + "/claimable", nil
	case "ips":
		if id == "" {
			return "", fmt.Errorf("-id is required for query=ips")
		}
		return "/ips/" + id, nil
	case "stakers":
		if id == "" {
			return "", fmt.Errorf("-id is required for query=stakers")
		}
		return "/ips/" + id + "/stakers", nil
	default:
		return "", fmt.Errorf("unknown query %q", query)
	}
}

func fetch(url string) ([]byte, error) {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}
