package storage

// jobsMapping is the index mapping for structured jobs. Filterable fields
// are keywords, free text stays analyzed.
var jobsMapping = map[string]any{
	"mappings": map[string]any{
		"properties": map[string]any{
			"id":          map[string]any{"type": "keyword"},
			"title":       map[string]any{"type": "text"},
			"company":     map[string]any{"type": "text"},
			"location":    map[string]any{"type": "text"},
			"description": map[string]any{"type": "text"},
			"employment_type": map[string]any{
				"properties": map[string]any{
					"full_time":  map[string]any{"type": "integer"},
					"part_time":  map[string]any{"type": "integer"},
					"contract":   map[string]any{"type": "integer"},
					"internship": map[string]any{"type": "integer"},
					"temporary":  map[string]any{"type": "integer"},
					"other":      map[string]any{"type": "keyword"},
				},
			},
			"salary": map[string]any{
				"properties": map[string]any{
					"min":      map[string]any{"type": "double"},
					"max":      map[string]any{"type": "double"},
					"currency": map[string]any{"type": "keyword"},
				},
			},
			"skills":               map[string]any{"type": "keyword"},
			"tags":                 map[string]any{"type": "keyword"},
			"work_type":            map[string]any{"type": "keyword"},
			"date_posted":          map[string]any{"type": "date"},
			"source":               map[string]any{"type": "keyword"},
			"source_url":           map[string]any{"type": "keyword"},
			"external_url":         map[string]any{"type": "keyword"},
			"status":               map[string]any{"type": "keyword"},
			"is_active":            map[string]any{"type": "boolean"},
			"applicants":           map[string]any{"type": "keyword"},
			"max_applications":     map[string]any{"type": "integer"},
			"type":                 map[string]any{"type": "keyword"},
			"with_employment_type": map[string]any{"type": "keyword"},
			"currency_supported":   map[string]any{"type": "keyword"},
			"crawled_at":           map[string]any{"type": "date"},
			"created_at":           map[string]any{"type": "date"},
			"updated_at":           map[string]any{"type": "date"},
		},
	},
}
