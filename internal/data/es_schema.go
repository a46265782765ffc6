package data

// WriteAlias is the fixed alias every document write goes through. Rollover
// re-targets it to the newest backing index, writers never see index names.
const WriteAlias = "qq_messages"

// ilmPolicy is the hot-phase rollover policy applied to every backing index.
func ilmPolicy() map[string]any {
	return map[string]any{
		"policy": map[string]any{
			"phases": map[string]any{
				"hot": map[string]any{
					"actions": map[string]any{
						"rollover": map[string]any{
							"max_docs": 2000000,
							"max_size": "50gb",
						},
					},
				},
			},
		},
	}
}

// indexSettings carries lifecycle binding and the Chinese analysis chain.
// default uses the fine-grained tokenizer for indexing, default_search the
// coarse one for queries.
func indexSettings(policyName string) map[string]any {
	return map[string]any{
		"number_of_shards":               1,
		"number_of_replicas":             1,
		"index.lifecycle.name":           policyName,
		"index.lifecycle.rollover_alias": WriteAlias,
		"analysis": map[string]any{
			"analyzer": map[string]any{
				"default": map[string]any{
					"type":        "custom",
					"char_filter": []string{"html_strip"},
					"tokenizer":   "ik_max_word",
					"filter":      []string{"lowercase", "trim"},
				},
				"default_search": map[string]any{
					"type":        "custom",
					"char_filter": []string{"html_strip"},
					"tokenizer":   "ik_smart",
					"filter":      []string{"lowercase", "trim"},
				},
			},
		},
	}
}

func indexMappings() map[string]any {
	return map[string]any{
		"properties": map[string]any{
			"@timestamp":      map[string]any{"type": "date"},
			"group_id":        map[string]any{"type": "keyword"},
			"group_name":      map[string]any{"type": "text"},
			"sender_id":       map[string]any{"type": "keyword"},
			"sender_name":     map[string]any{"type": "text"},
			"sender_nickname": map[string]any{"type": "text"},
			"message":         map[string]any{"type": "text"},
			"message_extra":   map[string]any{"type": "nested"},
		},
	}
}

// indexTemplate matches every backing index of the prefix so rolled-over
// indices inherit settings, mappings and the read alias automatically.
func indexTemplate(prefix, policyName string) map[string]any {
	return map[string]any{
		"index_patterns": prefix + "-*",
		"template": map[string]any{
			"settings": indexSettings(policyName),
			"mappings": indexMappings(),
			"aliases": map[string]any{
				WriteAlias: map[string]any{},
			},
		},
	}
}

// initialIndex is the body for the first backing index on a fresh deployment.
// It alone carries is_write_index, later indices get the alias from rollover.
func initialIndex(policyName string) map[string]any {
	return map[string]any{
		"settings": indexSettings(policyName),
		"mappings": indexMappings(),
		"aliases": map[string]any{
			WriteAlias: map[string]any{
				"is_write_index": true,
			},
		},
	}
}
