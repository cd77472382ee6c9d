package templates

var header = `
<head>
<meta content="text/html;charset=utf-8" http-equiv="Content-Type">
<meta content="utf-8" http-equiv="encoding">
<title>rita-threats</title>
<link rel="stylesheet" type="text/css" href="./style.css">
</head>

<ul>
  <li><a href="./index.html">rita-threats</a></li>
  {{range .Kinds}}<li><a href="./{{.Name}}.html">{{.Labels.Title}}</a></li>
  {{end}}<li style="float:right"><a href="{{.BaseURL}}" target="_blank">{{.BaseURL}}</a></li>
</ul>
`

// Hometempl is our home template html
var Hometempl = header + `
<p>
  <div class="info">Generated {{.Generated}}. Click on any of the kinds below to view the revealed indicators.</div>
  <div class="vertical-menu">
    {{range .Pages}}
      <a href="./{{.View.Kind.Name}}.html">{{.View.Kind.Labels.Title}}: {{len .View.Visible}} of {{.View.Total}}{{if .View.Err}} ({{.View.Err}}){{end}}</a>
    {{end}}
  </div>
</p>
`

// KindTempl lists the revealed indicators of a single kind
var KindTempl = header + `
{{with .Page}}
{{if .View.Err}}<div class="error">{{.View.Err}}</div>{{end}}
<div class="container">
  <table>
    <tr><th>#</th><th>{{.View.Kind.Labels.Singular}}</th></tr>
    {{range $idx, $ind := .View.Visible}}<tr><td>{{inc $idx}}</td><td>{{$ind.Value}}</td></tr>
    {{end}}
  </table>
</div>
{{if .View.HasMore}}<div class="info">Showing {{len .View.Visible}} of {{.View.Total}}. Run html-report with more --reveals to see more.</div>{{end}}
{{end}}
`
