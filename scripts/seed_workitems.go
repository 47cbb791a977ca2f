// seed_workitems.go — standalone script to seed a demo comparison session
// and score a work-item batch via the QVF API.
//
// Usage:
//
//	go run scripts/seed_workitems.go -api http://localhost:8700 -stakeholder demo
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
)

type criterion struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Direction string `json:"direction"`
}

type judgment struct {
	Row   int     `json:"row"`
	Col   int     `json:"col"`
	Value float64 `json:"value"`
}

type workItem struct {
	ID     string             `json:"id"`
	Title  string             `json:"title"`
	Type   string             `json:"type"`
	Values map[string]float64 `json:"values"`
}

var demoCriteria = []criterion{
	{ID: "business_value", Name: "Business Value", Direction: "higher_better"},
	{ID: "time_criticality", Name: "Time Criticality", Direction: "higher_better"},
	{ID: "complexity", Name: "Technical Complexity", Direction: "lower_better"},
	{ID: "risk", Name: "Delivery Risk", Direction: "lower_better"},
}

// Pairwise judgments on the 1-9 scale, upper triangle only.
var demoJudgments = []judgment{
	{Row: 0, Col: 1, Value: 2},
	{Row: 0, Col: 2, Value: 4},
	{Row: 0, Col: 3, Value: 5},
	{Row: 1, Col: 2, Value: 3},
	{Row: 1, Col: 3, Value: 3},
	{Row: 2, Col: 3, Value: 1},
}

var demoItems = []workItem{
	{ID: "EPIC-101", Title: "Self-serve onboarding", Type: "epic", Values: map[string]float64{
		"business_value": 90, "time_criticality": 70, "complexity": 60, "risk": 40,
	}},
	{ID: "EPIC-102", Title: "Billing migration", Type: "epic", Values: map[string]float64{
		"business_value": 60, "time_criticality": 90, "complexity": 80, "risk": 70,
	}},
	{ID: "FEAT-201", Title: "Audit log export", Type: "feature", Values: map[string]float64{
		"business_value": 40, "time_criticality": 30, "complexity": 30, "risk": 20,
	}},
	{ID: "FEAT-202", Title: "SSO integration", Type: "feature", Values: map[string]float64{
		"business_value": 75, "time_criticality": 60, "complexity": 50, "risk": 35,
	}},
	{ID: "STORY-301", Title: "Dashboard dark mode", Type: "story", Values: map[string]float64{
		"business_value": 15, "time_criticality": 10, "complexity": 20, "risk": 5,
	}},
}

func main() {
	apiURL := flag.String("api", "http://localhost:8700", "QVF API base URL")
	stakeholder := flag.String("stakeholder", "demo", "X-Stakeholder-ID header value")
	flag.Parse()

	c := &apiClient{base: *apiURL, stakeholder: *stakeholder, http: &http.Client{}}

	var sess struct {
		ID string `json:"id"`
	}
	if err := c.post("/api/v1/sessions", map[string]interface{}{
		"name":     "demo planning session",
		"criteria": demoCriteria,
	}, &sess); err != nil {
		log.Fatalf("create session: %v", err)
	}
	log.Printf("created session %s", sess.ID)

	if err := c.put("/api/v1/sessions/"+sess.ID+"/judgments", map[string]interface{}{
		"judgments": demoJudgments,
	}, nil); err != nil {
		log.Fatalf("put judgments: %v", err)
	}

	var derived struct {
		Weights             []float64 `json:"weights"`
		ConsistencyRatio    float64   `json:"consistency_ratio"`
		ConsistencyAccepted bool      `json:"consistency_accepted"`
	}
	if err := c.post("/api/v1/sessions/"+sess.ID+"/derive", nil, &derived); err != nil {
		log.Fatalf("derive weights: %v", err)
	}
	log.Printf("derived weights %v (CR=%.4f, accepted=%v)", derived.Weights, derived.ConsistencyRatio, derived.ConsistencyAccepted)

	if err := c.post("/api/v1/sessions/"+sess.ID+"/accept", map[string]interface{}{
		"force": !derived.ConsistencyAccepted,
	}, nil); err != nil {
		log.Fatalf("accept weights: %v", err)
	}

	var scored struct {
		RunID   string `json:"run_id"`
		Records []struct {
			ItemID string  `json:"item_id"`
			Score  float64 `json:"score"`
			Tier   string  `json:"tier"`
		} `json:"records"`
	}
	if err := c.post("/api/v1/score", map[string]interface{}{
		"session_id": sess.ID,
		"items":      demoItems,
		"source":     "seed",
	}, &scored); err != nil {
		log.Fatalf("score batch: %v", err)
	}

	log.Printf("run %s scored %d items:", scored.RunID, len(scored.Records))
	for _, r := range scored.Records {
		fmt.Printf("  %-10s %.4f  %s\n", r.ItemID, r.Score, r.Tier)
	}
}

type apiClient struct {
	base        string
	stakeholder string
	http        *http.Client
}

func (c *apiClient) post(path string, body, out interface{}) error {
	return c.do("POST", path, body, out)
}

func (c *apiClient) put(path string, body, out interface{}) error {
	return c.do("PUT", path, body, out)
}

func (c *apiClient) do(method, path string, body, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Stakeholder-ID", c.stakeholder)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var errBody map[string]string
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, errBody["error"])
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
