// Command paperctl drives the paper-trading lifecycle against a running
// detector instance over its HTTP surface: simulate a fill for a signal,
// close a position, or print aggregate stats.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "detector HTTP address")
	cmd := flag.String("cmd", "stats", "simulate | close | stats")
	signalID := flag.String("signal", "", "signal id (simulate)")
	size := flag.Float64("size", 0, "size override (simulate, 0 = use suggested size)")
	positionID := flag.Int64("position", 0, "position id (close)")
	flag.Parse()

	var err error
	switch *cmd {
	case "simulate":
		err = simulate(*addr, *signalID, *size)
	case "close":
		err = closePosition(*addr, *positionID)
	case "stats":
		err = stats(*addr)
	default:
		err = fmt.Errorf("unknown -cmd %q", *cmd)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "paperctl:", err)
		os.Exit(1)
	}
}

func simulate(addr, signalID string, size float64) error {
	if signalID == "" {
		return fmt.Errorf("-signal is required for simulate")
	}
	body, _ := json.Marshal(map[string]any{"signal_id": signalID, "size": size})
	return post(addr+"/paper/simulate", body)
}

func closePosition(addr string, positionID int64) error {
	if positionID == 0 {
		return fmt.Errorf("-position is required for close")
	}
	body, _ := json.Marshal(map[string]any{"position_id": positionID})
	return post(addr+"/paper/close", body)
}

func stats(addr string) error {
	resp, err := http.Get(addr + "/paper/stats")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return printResponse(resp)
}

func post(url string, body []byte) error {
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return printResponse(resp)
}

func printResponse(resp *http.Response) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(data))
	}
	fmt.Println(string(data))
	return nil
}
