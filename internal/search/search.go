// Package search keeps published projects queryable in Elasticsearch.
// The index mirrors the database: documents appear on publish and
// disappear on unpublish or delete.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/craftwerk/portfolio-backend/internal/config"
	"github.com/craftwerk/portfolio-backend/internal/models"
)

const ProjectIndexName = "portfolio_projects"

// ProjectIndex is the handler-facing surface, implemented here against
// Elasticsearch and faked in tests.
type ProjectIndex interface {
	IndexProject(ctx context.Context, p *models.Project) error
	DeleteProject(ctx context.Context, projectID uint) error
	SearchProjects(ctx context.Context, query string, from, size int) (int64, []models.Project, error)
}

func NewClient(cfg *config.Config) (*elasticsearch.Client, error) {
	esCfg := elasticsearch.Config{
		Addresses: []string{cfg.ES_URL},
		Username:  cfg.ES_USER,
		Password:  cfg.ES_PASSWORD,
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch error: %s", res.Status())
	}

	log.Printf("connected to Elasticsearch at %s", cfg.ES_URL)
	return client, nil
}

type ESIndex struct {
	ES *elasticsearch.Client
}

func (s *ESIndex) IndexProject(ctx context.Context, p *models.Project) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return err
	}
	res, err := s.ES.Index(
		ProjectIndexName,
		bytes.NewReader(doc),
		s.ES.Index.WithDocumentID(strconv.FormatUint(uint64(p.ID), 10)),
		s.ES.Index.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index project %d: %s", p.ID, res.Status())
	}
	return nil
}

func (s *ESIndex) DeleteProject(ctx context.Context, projectID uint) error {
	res, err := s.ES.Delete(
		ProjectIndexName,
		strconv.FormatUint(uint64(projectID), 10),
		s.ES.Delete.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	// 404 means the document was never indexed; removal already holds.
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete project %d: %s", projectID, res.Status())
	}
	return nil
}

func (s *ESIndex) SearchProjects(ctx context.Context, query string, from, size int) (int64, []models.Project, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"title^2", "description", "tech"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, err
	}

	res, err := s.ES.Search(
		s.ES.Search.WithContext(ctx),
		s.ES.Search.WithIndex(ProjectIndexName),
		s.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("search failed: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Project `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, err
	}

	projects := make([]models.Project, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		projects[i] = hit.Source
	}
	return r.Hits.Total.Value, projects, nil
}
