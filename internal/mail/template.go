package mail

import (
	"bytes"
	"fmt"
	"html/template"
)

type licenseEmailData struct {
	ProductName  string
	CustomerName string
	LicenseKey   string
	AppURL       string
	MaxDevices   int
}

var licenseEmailTmpl = template.Must(template.New("license").Parse(`<!DOCTYPE html>
<html>
<head>
  <style>
    body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #EBE6D9; color: #2D4743; margin: 0; padding: 40px; }
    .container { max-width: 600px; margin: 0 auto; background-color: #F2EFE8; padding: 40px; border-radius: 8px; border: 1px solid #D4CAB6; }
    h1 { font-family: 'Courier New', Courier, monospace; color: #2D4743; letter-spacing: -0.5px; }
    .key-box { background-color: #2D4743; color: #F2EFE8; padding: 20px; text-align: center; font-family: 'Courier New', Courier, monospace; font-size: 22px; letter-spacing: 2px; margin: 30px 0; border-radius: 4px; }
    .cta { display: inline-block; background-color: #E67E22; color: #FFFFFF; padding: 12px 24px; border-radius: 4px; text-decoration: none; font-weight: bold; }
    .footer { margin-top: 40px; font-size: 12px; color: #6B6560; text-align: center; }
  </style>
</head>
<body>
  <div class="container">
    <h1>Welcome to the Studio{{if .CustomerName}}, {{.CustomerName}}{{end}}.</h1>
    <p>Thank you for choosing <strong>{{.ProductName}}</strong>. Below is your personal license key.</p>
    <div class="key-box">{{.LicenseKey}}</div>
    <p>To activate, open the {{.ProductName}} application settings and enter this key. It can be active on up to {{.MaxDevices}} devices.</p>
    <p><a class="cta" href="{{.AppURL}}">Open {{.ProductName}}</a></p>
    <div class="footer">
      <p>{{.ProductName}} &mdash; The Intelligent Typography Assistant</p>
    </div>
  </div>
</body>
</html>
`))

const licenseTextFormat = `Thank you for choosing %s.

Your license key: %s

To activate, enter this key in the application settings (up to %d devices).
%s
`

func renderLicenseEmail(data licenseEmailData) (html string, text string, err error) {
	var buf bytes.Buffer
	if err := licenseEmailTmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("failed to render license email: %w", err)
	}
	text = fmt.Sprintf(licenseTextFormat, data.ProductName, data.LicenseKey, data.MaxDevices, data.AppURL)
	return buf.String(), text, nil
}
