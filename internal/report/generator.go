package report

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"

	"DexTracer/internal/model"
)

type reportChain struct {
	ID    int
	Steps []reportStep
}

type reportStep struct {
	Index     int
	Type      string
	TypeClass string
	Signature string
	CallSite  string
}

type reportFinding struct {
	ID         int
	EntryPoint string
	Kind       string
	Sink       string
	Category   string
	Severity   string
	Confidence string
	Level      string
	LevelClass string
	Deeplink   bool
	PathCount  int
	MinLength  int
	Chains     []reportChain
}

type reportData struct {
	GeneratedAt   string
	Package       string
	TotalFindings int
	Findings      []reportFinding
}

const htmlTemplateStr = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>DexTracer Scan Report</title>
    <style>
        body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; background-color: #f0f2f5; color: #333; margin: 0; padding: 20px; }
        .container { max-width: 1100px; margin: 0 auto; }

        .report-header { background: white; padding: 20px 30px; border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.05); margin-bottom: 30px; border-left: 5px solid #d32f2f; }
        .report-header h1 { margin: 0; color: #2c3e50; font-size: 24px; }
        .meta { color: #7f8c8d; font-size: 14px; margin-top: 5px; }

        .vuln-card { background: white; border-radius: 8px; box-shadow: 0 2px 10px rgba(0,0,0,0.05); margin-bottom: 40px; overflow: hidden; }
        .vuln-title { background: #2c3e50; color: white; padding: 15px 20px; font-weight: bold; display: flex; justify-content: space-between; align-items: center; }
        .chain-body { padding: 20px; }

        .badge { padding: 3px 10px; border-radius: 12px; font-size: 12px; font-weight: bold; color: white; margin-left: 8px; }
        .badge-high { background: #d32f2f; }
        .badge-medium { background: #f9a825; }
        .badge-low { background: #607d8b; }
        .badge-deeplink { background: #7b1fa2; }

        .flow-meta { font-size: 13px; color: #7f8c8d; margin-bottom: 15px; font-family: monospace; }

        .timeline { position: relative; padding-left: 20px; }
        .timeline::before { content: ''; position: absolute; left: 0; top: 10px; bottom: 0; width: 2px; background: #e0e0e0; }

        .step { position: relative; margin-bottom: 25px; padding-left: 25px; }
        .step::before { content: ''; position: absolute; left: -26px; top: 0; width: 14px; height: 14px; border-radius: 50%; border: 3px solid white; box-shadow: 0 0 0 2px #e0e0e0; z-index: 1; }

        .type-entry::before { background: #d32f2f; box-shadow: 0 0 0 2px #d32f2f; }
        .type-step::before { background: #fbc02d; box-shadow: 0 0 0 2px #fbc02d; }
        .type-sink::before { background: #212121; box-shadow: 0 0 0 2px #212121; }

        .step-header { display: flex; align-items: center; margin-bottom: 8px; flex-wrap: wrap; }
        .tag { padding: 2px 8px; border-radius: 4px; font-size: 12px; font-weight: bold; margin-right: 10px; color: white; }
        .tag-entry { background: #d32f2f; }
        .tag-step { background: #f9a825; }
        .tag-sink { background: #212121; }

        .func-name { font-family: 'JetBrains Mono', Consolas, monospace; font-weight: bold; color: #000; font-size: 1.0em; word-break: break-all; }
        .code-box { background: #fafafa; border: 1px solid #eee; border-radius: 4px; padding: 8px; margin-top: 5px; font-family: 'JetBrains Mono', Consolas, monospace; font-size: 12px; color: #555; }
    </style>
</head>
<body>
    <div class="container">
        <div class="report-header">
            <h1>DexTracer Security Report</h1>
            <div class="meta">Package: <strong>{{.Package}}</strong> | Generated at: {{.GeneratedAt}} | Findings: <strong>{{.TotalFindings}}</strong></div>
        </div>

        {{range .Findings}}
        <div class="vuln-card">
            <div class="vuln-title">
                <span>#{{.ID}} {{.EntryPoint}} &rarr; {{.Sink}}</span>
                <span>
                    <span class="badge badge-{{.LevelClass}}">{{.Level}} {{.Confidence}}</span>
                    {{if .Deeplink}}<span class="badge badge-deeplink">DEEPLINK</span>{{end}}
                </span>
            </div>
            <div class="chain-body">
                <div class="flow-meta">category={{.Category}} severity={{.Severity}} component={{.Kind}} paths={{.PathCount}} min_length={{.MinLength}}</div>
                {{range .Chains}}
                <div class="timeline">
                    {{range .Steps}}
                    <div class="step type-{{.TypeClass}}">
                        <div class="step-header">
                            <span class="tag tag-{{.TypeClass}}">{{.Type}}</span>
                            <span class="func-name">{{.Signature}}</span>
                        </div>
                        {{if .CallSite}}<div class="code-box">{{.CallSite}}</div>{{end}}
                    </div>
                    {{end}}
                </div>
                {{end}}
            </div>
        </div>
        {{end}}
    </div>
</body>
</html>
`

// GenerateHTML writes the findings as an HTML report and returns the path of
// the written file. With an empty outPath the report lands under output/ with
// a timestamped name.
func GenerateHTML(findings []model.Finding, packageName, outPath string) (string, error) {
	data := reportData{
		GeneratedAt:   time.Now().Format("2006-01-02 15:04:05"),
		Package:       packageName,
		TotalFindings: len(findings),
	}

	for i, f := range findings {
		rf := reportFinding{
			ID:         i + 1,
			EntryPoint: f.EntryPoint,
			Kind:       f.ComponentKind,
			Sink:       f.SinkMethod,
			Category:   f.Category,
			Severity:   f.Severity,
			Confidence: fmt.Sprintf("%.2f", f.Confidence),
			Level:      f.Level,
			LevelClass: levelClass(f.Level),
			Deeplink:   f.Deeplink,
			PathCount:  f.PathCount,
			MinLength:  f.MinPathLength,
		}
		for j, chain := range f.Chains {
			rc := reportChain{ID: j + 1}
			for k, step := range chain {
				typ, class := "STEP", "step"
				if k == 0 {
					typ, class = "ENTRY", "entry"
				} else if k == len(chain)-1 {
					typ, class = "SINK", "sink"
				}
				rc.Steps = append(rc.Steps, reportStep{
					Index:     k,
					Type:      typ,
					TypeClass: class,
					Signature: step.Signature,
					CallSite:  step.CallSite,
				})
			}
			rf.Chains = append(rf.Chains, rc)
		}
		data.Findings = append(data.Findings, rf)
	}

	t, err := template.New("report").Parse(htmlTemplateStr)
	if err != nil {
		return "", err
	}

	if outPath == "" {
		if err := os.MkdirAll("output", 0755); err != nil {
			return "", err
		}
		outPath = filepath.Join("output", fmt.Sprintf("report_%d.html", time.Now().Unix()))
	}
	f, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := t.Execute(f, data); err != nil {
		return "", err
	}

	abs, _ := filepath.Abs(outPath)
	color.Green("[+] Report generated: %s", abs)
	return outPath, nil
}

func levelClass(level string) string {
	switch level {
	case "High":
		return "high"
	case "Medium":
		return "medium"
	default:
		return "low"
	}
}
