package digest

import "html/template"

var digestTemplate = template.Must(template.New("digest").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>RegulatoryRadar Daily Digest</title>
</head>
<body style="margin: 0; padding: 0; background-color: #f4f6f9; font-family: -apple-system, 'Segoe UI', Roboto, Arial, sans-serif;">
    <table width="100%" cellpadding="0" cellspacing="0" style="background-color: #f4f6f9; padding: 20px 0;">
        <tr>
            <td align="center">
                <table width="640" cellpadding="0" cellspacing="0" style="max-width: 640px; width: 100%;">
                    <tr>
                        <td style="background-color: #0a1628; padding: 30px 40px; border-radius: 12px 12px 0 0;">
                            <h1 style="color: #ffffff; margin: 0; font-size: 28px;">RegulatoryRadar</h1>
                            <p style="color: #8ab4f8; margin: 8px 0 0; font-size: 14px;">Your Daily FDA &amp; Regulatory Intelligence Digest</p>
                            <p style="color: #94a3b8; margin: 4px 0 0; font-size: 12px;">{{.DigestDate}}</p>
                        </td>
                    </tr>
                    <tr>
                        <td style="background-color: #ffffff; padding: 20px 40px; border-bottom: 1px solid #e2e8f0;">
                            <p style="color: #475569; margin: 0; font-size: 14px;">
                                Hello {{.Recipient}}, here are your <strong>{{.TotalUpdates}}</strong> regulatory updates.
                            </p>
                        </td>
                    </tr>
{{- if .TopStories}}
                    <tr>
                        <td style="background-color: #ffffff; padding: 30px 40px 10px;">
                            <h2 style="color: #0a1628; margin: 0 0 20px; font-size: 20px;">Top Stories</h2>
                        </td>
                    </tr>
{{- range .TopStories}}
                    <tr>
                        <td style="background-color: #ffffff; padding: 0 40px 20px;">
                            <table width="100%" cellpadding="0" cellspacing="0" style="border: 1px solid #e2e8f0; border-radius: 8px;">
                                <tr>
                                    <td style="background-color: #fef2f2; padding: 4px 12px;">
                                        <span style="color: #dc2626; font-size: 11px; font-weight: 600; text-transform: uppercase;">{{.Impact}} impact</span>
{{- if .Score}}
                                        <span style="color: #64748b; font-size: 11px; margin-left: 10px;">Score: {{.Score}}/100</span>
{{- end}}
                                    </td>
                                </tr>
                                <tr>
                                    <td style="padding: 16px;">
                                        <h3 style="color: #0a1628; margin: 0 0 8px; font-size: 16px;">
{{- if .SourceURL}}
                                            <a href="{{.SourceURL}}" style="color: #1a3a5c; text-decoration: none;">{{.Title}}</a>
{{- else}}
                                            {{.Title}}
{{- end}}
                                        </h3>
                                        <p style="color: #475569; margin: 0 0 8px; font-size: 13px;">{{.Summary}}</p>
                                        <span style="color: #94a3b8; font-size: 11px;">{{.Source}} &bull; {{.PublishedDate}}</span>
                                    </td>
                                </tr>
                            </table>
                        </td>
                    </tr>
{{- end}}
{{- end}}
{{- if .FDAUpdates}}
                    <tr>
                        <td style="background-color: #ffffff; padding: 30px 40px 10px;">
                            <h2 style="color: #0a1628; margin: 0 0 20px; font-size: 20px;">FDA Updates</h2>
                        </td>
                    </tr>
{{- range .FDAUpdates}}
                    <tr>
                        <td style="background-color: #ffffff; padding: 0 40px 15px;">
                            <table width="100%" cellpadding="0" cellspacing="0" style="border-left: 3px solid #1a3a5c;">
                                <tr>
                                    <td style="padding-left: 16px;">
                                        <span style="color: #1a3a5c; font-size: 11px; font-weight: 600; text-transform: uppercase;">{{.UpdateType}}</span>
                                        <h3 style="color: #0a1628; margin: 4px 0 6px; font-size: 15px;">
{{- if .SourceURL}}
                                            <a href="{{.SourceURL}}" style="color: #1a3a5c; text-decoration: none;">{{.Title}}</a>
{{- else}}
                                            {{.Title}}
{{- end}}
                                        </h3>
                                        <p style="color: #475569; margin: 0; font-size: 13px;">{{.Summary}}</p>
                                    </td>
                                </tr>
                            </table>
                        </td>
                    </tr>
{{- end}}
{{- end}}
{{- if .ClinicalTrials}}
                    <tr>
                        <td style="background-color: #ffffff; padding: 30px 40px 10px;">
                            <h2 style="color: #0a1628; margin: 0 0 20px; font-size: 20px;">Clinical Trials</h2>
                        </td>
                    </tr>
{{- range .ClinicalTrials}}
                    <tr>
                        <td style="background-color: #ffffff; padding: 0 40px 15px;">
                            <table width="100%" cellpadding="0" cellspacing="0" style="border-left: 3px solid #059669;">
                                <tr>
                                    <td style="padding-left: 16px;">
                                        <span style="color: #059669; font-size: 11px; font-weight: 600; text-transform: uppercase;">Clinical Trial</span>
                                        <h3 style="color: #0a1628; margin: 4px 0 6px; font-size: 15px;">
{{- if .SourceURL}}
                                            <a href="{{.SourceURL}}" style="color: #1a3a5c; text-decoration: none;">{{.Title}}</a>
{{- else}}
                                            {{.Title}}
{{- end}}
                                        </h3>
                                        <p style="color: #475569; margin: 0; font-size: 13px;">{{.Summary}}</p>
                                    </td>
                                </tr>
                            </table>
                        </td>
                    </tr>
{{- end}}
{{- end}}
{{- if .Empty}}
                    <tr>
                        <td style="background-color: #ffffff; padding: 40px; text-align: center;">
                            <p style="color: #94a3b8; font-size: 14px;">No new regulatory updates found for this period.</p>
                        </td>
                    </tr>
{{- end}}
                    <tr>
                        <td style="background-color: #0a1628; padding: 24px 40px; border-radius: 0 0 12px 12px; text-align: center;">
                            <p style="color: #8ab4f8; margin: 0 0 8px; font-size: 13px; font-weight: 600;">RegulatoryRadar</p>
                            <p style="color: #64748b; margin: 0; font-size: 11px;">AI-curated FDA regulatory intelligence for pharmaceutical professionals.</p>
                        </td>
                    </tr>
                </table>
            </td>
        </tr>
    </table>
</body>
</html>`))
