package orchestrator

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"os"
	"path/filepath"

	"github.com/gsudice/nsf-cosea/config"
	"github.com/gsudice/nsf-cosea/internal/model"
)

// resultArtifacts are the files a completed job may have written under
// its output directory, attached to the notification email when present.
var resultArtifacts = []string{
	"map_pmedian.png", "map_lscp.png", "map_mclp.png",
	"pmedian_kpis.json", "lscp_kpis.json", "mclp_kpis.json",
}

// sendResultsEmail notifies job.UserEmail of a completed run, attaching
// whatever result files exist under outDir. Silently does nothing when
// SMTP isn't configured — notification is a convenience, not a pipeline
// dependency.
func sendResultsEmail(cfg config.SMTPConfig, job *model.ScenarioJob, outDir string) error {
	if !cfg.Configured() {
		return nil
	}

	from := cfg.FromEmail
	if from == "" {
		from = cfg.User
	}

	msg, err := buildMessage(from, job, outDir)
	if err != nil {
		return fmt.Errorf("orchestrator: build notification email: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	auth := smtp.PlainAuth("", cfg.User, cfg.Password, cfg.Host)
	return smtp.SendMail(addr, auth, from, []string{job.UserEmail}, msg)
}

func buildMessage(from string, job *model.ScenarioJob, outDir string) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	subject := fmt.Sprintf("[Location Modeling] Results for scenario %s", job.ScenarioSlug)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", job.UserEmail)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", writer.Boundary())

	body := textPart(job)
	textHeader := textproto.MIMEHeader{}
	textHeader.Set("Content-Type", "text/plain; charset=utf-8")
	part, err := writer.CreatePart(textHeader)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write([]byte(body)); err != nil {
		return nil, err
	}

	if err := attachArtifacts(writer, outDir); err != nil {
		return nil, err
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func textPart(job *model.ScenarioJob) string {
	return fmt.Sprintf(
		"Hi,\r\n\r\nYour location modeling analysis for scenario '%s' has finished.\r\nDemand metric: %s\r\n\r\nAttached you should find the maps for the P-Median, LSCP, and MCLP models (PNG).\r\n\r\nResults are also available at:\r\n  %s\r\n\r\nBest,\r\nLocation Modeling Portal\r\n",
		job.ScenarioSlug, job.Metric, job.ResultsURL,
	)
}

func attachArtifacts(writer *multipart.Writer, outDir string) error {
	for _, name := range resultArtifacts {
		path := filepath.Join(outDir, name)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read attachment %s: %w", path, err)
		}

		header := textproto.MIMEHeader{}
		header.Set("Content-Type", mime.TypeByExtension(filepath.Ext(name)))
		header.Set("Content-Transfer-Encoding", "base64")
		header.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
		part, err := writer.CreatePart(header)
		if err != nil {
			return err
		}
		encoded := base64.StdEncoding.EncodeToString(data)
		if _, err := part.Write([]byte(encoded)); err != nil {
			return err
		}
	}
	return nil
}
