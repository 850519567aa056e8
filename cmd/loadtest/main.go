package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"
)

// Result 记录单次请求的 HTTP 结果，便于聚合统计。
type Result struct {
	Status int
	Body   string
	Err    error
}

// 抢单并发测试：token 文件第一行是发布者，其余行是抢单人。
// 发布者先创建一条 open 请求，然后所有抢单人并发 PATCH accept，
// 正确行为是恰好一个 200，其余全部 400。
func main() {
	baseURL := flag.String("base", "http://localhost:8080", "server base url")
	tokenFile := flag.String("tokens", "tokens.txt", "file with one bearer token per line; first line creates the request")
	itemName := flag.String("item", "Maggi", "item name for the created request")
	price := flag.String("price", "30", "price offered")
	concurrency := flag.Int("c", 50, "max concurrency")
	flag.Parse()

	tokens, err := readTokens(*tokenFile)
	if err != nil {
		panic(fmt.Sprintf("read tokens: %v", err))
	}
	if len(tokens) < 2 {
		panic("need at least 2 tokens: one requester + one accepter")
	}

	client := &http.Client{Timeout: 5 * time.Second}

	requestID, err := createRequest(client, *baseURL, tokens[0], *itemName, *price)
	if err != nil {
		panic(fmt.Sprintf("create request failed: %v", err))
	}
	fmt.Printf("created request %d\n", requestID)

	accepters := tokens[1:]
	fmt.Printf("start accept race: request=%d accepters=%d concurrency=%d\n", requestID, len(accepters), *concurrency)
	results := runAccept(client, *baseURL, requestID, accepters, *concurrency)
	printSummary("accept_race", results)

	// 自接自单测试：发布者本人也去抢，预期 403。
	self := acceptOnce(client, *baseURL, requestID, tokens[0])
	fmt.Printf("\nself-accept: status=%d body=%s\n", self.Status, self.Body)
}

func readTokens(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var tokens []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			tokens = append(tokens, line)
		}
	}
	return tokens, scanner.Err()
}

func createRequest(client *http.Client, baseURL, token, itemName, price string) (int64, error) {
	body, _ := json.Marshal(map[string]any{
		"item_name":     itemName,
		"price_offered": price,
	})
	req, _ := http.NewRequest(http.MethodPost, baseURL+"/requests", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated {
		return 0, fmt.Errorf("status=%d body=%s", resp.StatusCode, string(b))
	}

	var out struct {
		RequestID int64 `json:"request_id"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return 0, err
	}
	return out.RequestID, nil
}

func runAccept(client *http.Client, baseURL string, requestID int64, tokens []string, concurrency int) []Result {
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	results := make([]Result, len(tokens))

	for i := range tokens {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			results[idx] = acceptOnce(client, baseURL, requestID, tokens[idx])
		}(i)
	}

	wg.Wait()
	return results
}

func acceptOnce(client *http.Client, baseURL string, requestID int64, token string) Result {
	url := fmt.Sprintf("%s/requests/%d/accept", baseURL, requestID)
	req, _ := http.NewRequest(http.MethodPatch, url, nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return Result{Err: err}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return Result{Status: resp.StatusCode, Body: string(body)}
}

// printSummary 聚合输出不同状态码分布。
func printSummary(name string, results []Result) {
	count := map[int]int{}
	errCount := 0
	for _, r := range results {
		if r.Err != nil {
			errCount++
			continue
		}
		count[r.Status]++
	}
	fmt.Printf("[%s] http status summary:\n", name)
	for _, code := range []int{200, 400, 401, 403, 404, 429, 500} {
		if count[code] > 0 {
			fmt.Printf("  %d -> %d\n", code, count[code])
		}
	}
	if errCount > 0 {
		fmt.Printf("  errors -> %d\n", errCount)
	}
	if count[200] == 1 {
		fmt.Println("  exactly one winner: OK")
	} else {
		fmt.Printf("  WARNING: expected exactly one 200, got %d\n", count[200])
	}
}
