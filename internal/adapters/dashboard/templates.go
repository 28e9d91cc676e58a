package dashboard

import (
	"html/template"

	"github.com/mikey/authenticity-guardian/internal/core"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>AI Authenticity Guardian</title>
<style>
body { font-family: sans-serif; max-width: 52rem; margin: 2rem auto; padding: 0 1rem; }
label { display: block; margin-top: .75rem; }
input[type=text], input[type=number] { width: 100%; padding: .4rem; }
.error { background: #fde8e8; border: 1px solid #e0a0a0; padding: .75rem; margin: 1rem 0; }
.risk-HIGH { border-left: 6px solid #c0392b; }
.risk-MEDIUM { border-left: 6px solid #e67e22; }
.risk-LOW { border-left: 6px solid #27ae60; }
pre { background: #f6f6f6; padding: 1rem; white-space: pre-wrap; }
</style>
</head>
<body>
<h1>AI Authenticity Guardian</h1>
<p>Reference catalog: {{.CatalogSize}} products.</p>
{{if .ConfigError}}<div class="error"><strong>Configuration problem.</strong> {{.ConfigError}}</div>{{end}}
<form method="post" action="/analyze">
<label>Listing name <input type="text" name="name" value="{{.Name}}" required></label>
<label>Price <input type="number" name="price" value="{{.Price}}" min="1" required></label>
<p><button type="submit"{{if .ConfigError}} disabled{{end}}>Analyze listing</button></p>
</form>
{{if .Error}}<div class="error">{{.Error}}{{if .Diagnostic}}<p>Model output:</p><pre class="raw">{{.Diagnostic}}</pre>{{end}}</div>{{end}}
{{with .Analysis}}
<section class="risk-{{.Result.RiskLevel}}">
<h2>{{.Result.RiskLevel}} risk: {{.Result.RecommendedAction}}</h2>
<pre>{{.Report.Summary}}</pre>
{{if .NotificationQueued}}<p>A high risk notification has been queued.</p>{{end}}
</section>
{{end}}
</body>
</html>
`))

// pageData is the view model for the analysis page
type pageData struct {
	CatalogSize int
	ConfigError string
	Name        string
	Price       string
	Error       string
	Diagnostic  string
	Analysis    *core.Analysis
}
