package model

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SinkRule describes one sink category: the method-signature substrings that
// mark a call as security sensitive, plus reporting metadata.
type SinkRule struct {
	Category string   `yaml:"category"`
	Name     string   `yaml:"name"`
	Desc     string   `yaml:"desc"`
	Severity string   `yaml:"severity"`
	Patterns []string `yaml:"patterns"`
}

// LoadRulesFromFile loads sink rules from a YAML file.
func LoadRulesFromFile(path string) ([]SinkRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var rules []SinkRule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, err
	}

	for i := range rules {
		if len(rules[i].Patterns) == 0 {
			return nil, fmt.Errorf("rule %q has no patterns", rules[i].Category)
		}
		if rules[i].Name == "" {
			rules[i].Name = rules[i].Category
		}
	}

	return rules, nil
}

// Builtin sink categories.
const (
	CategoryWebView = "webview"
	CategoryFile    = "file"
	CategoryNetwork = "network"
	CategorySQL     = "sql"
)

// GetBuiltinRules returns the builtin sink rule set.
func GetBuiltinRules() []SinkRule {
	return []SinkRule{
		{
			Category: CategoryWebView,
			Name:     "WebView content loading",
			Desc:     "Externally controlled URLs or HTML reaching a WebView enable UI spoofing and JavaScript injection",
			Severity: "High",
			Patterns: []string{
				"loadUrl",
				"loadData",
				"loadDataWithBaseURL",
				"evaluateJavascript",
				"addJavascriptInterface",
				"setWebViewClient",
				"setWebChromeClient",
			},
		},
		{
			Category: CategoryFile,
			Name:     "File write",
			Desc:     "Externally controlled paths or content reaching file writes enable traversal and overwrite attacks",
			Severity: "Medium",
			Patterns: []string{
				"FileOutputStream",
				"FileWriter",
				"RandomAccessFile.write",
				"Files.write",
			},
		},
		{
			Category: CategoryNetwork,
			Name:     "Network connection",
			Desc:     "Externally controlled hosts or URLs reaching network calls enable SSRF and data exfiltration",
			Severity: "Medium",
			Patterns: []string{
				"HttpURLConnection",
				"OkHttp",
				"URLConnection.connect",
				"Socket.connect",
			},
		},
		{
			Category: CategorySQL,
			Name:     "SQL execution",
			Desc:     "Externally controlled strings reaching SQL execution enable injection",
			Severity: "High",
			Patterns: []string{
				"execSQL",
				"rawQuery",
				"SQLiteDatabase.query",
			},
		},
	}
}

// RuleByCategory returns the rule of the given category from the set.
func RuleByCategory(rules []SinkRule, category string) (SinkRule, bool) {
	for _, r := range rules {
		if r.Category == category {
			return r, true
		}
	}
	return SinkRule{}, false
}
