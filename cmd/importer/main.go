// cmd/importer/main.go
// Loads runs from an export file into a course.
//
// Usage:
//
//	go run ./cmd/importer -course course-1717430000000 -file runs.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/jesseboth/autocross/config"
	bundb "github.com/jesseboth/autocross/db"
	"github.com/jesseboth/autocross/store"
)

func main() {
	courseID := flag.String("course", "", "target course id (required)")
	file := flag.String("file", "", "export JSON file (required)")
	flag.Parse()

	if *courseID == "" || *file == "" {
		log.Fatal("both -course and -file are required")
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal("read file:", err)
	}

	// Accepts a full export payload or a bare {runs: [...]} document.
	var payload struct {
		Runs []json.RawMessage `json:"runs"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Fatal("parse export file:", err)
	}
	if len(payload.Runs) == 0 {
		log.Fatal("export file contains no runs")
	}

	cfg := config.Load()
	db := bundb.Setup(cfg)
	defer db.Close()

	st := store.New(db, store.NewTimestampIDs(), nil, zap.NewNop())
	result, err := st.Runs.Import(context.Background(), *courseID, payload.Runs)
	if err != nil {
		log.Fatal("import:", err)
	}

	fmt.Printf("imported %d of %d runs into %s\n", result.Imported, len(payload.Runs), *courseID)
	for _, msg := range result.Errors {
		fmt.Println("  skipped:", msg)
	}
}
