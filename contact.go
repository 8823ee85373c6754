package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/smtp"
	"net/mail"
	"strings"

	"github.com/gin-gonic/gin"
)

var errSMTPNotConfigured = errors.New("SMTP credentials not configured")

// contactMessage is a contact form submission.
type contactMessage struct {
	Name    string `form:"fullName" binding:"required,max=100"`
	Email   string `form:"email" binding:"required,email"`
	Message string `form:"message" binding:"required,max=5000"`
}

// sendMail is swapped out in tests.
var sendMail = smtp.SendMail

func (s *server) contact(c *gin.Context) {
	var msg contactMessage
	if err := c.ShouldBind(&msg); err != nil {
		c.HTML(http.StatusOK, "contact-error.html", gin.H{
			"error": "Please fill in your name, a valid email and a message.",
		})
		return
	}

	if err := s.sendContactEmail(msg); err != nil {
		s.log.Error("send contact email", "component", "contact", "err", err)
		c.HTML(http.StatusOK, "contact-error.html", gin.H{
			"error": "Sorry, there was an error sending your message. Please try again later.",
		})
		return
	}

	s.log.Info("contact email sent", "component", "contact")
	c.HTML(http.StatusOK, "contact-success.html", gin.H{
		"success": "Thank you for your message! I'll get back to you soon.",
	})
}

func (s *server) sendContactEmail(msg contactMessage) error {
	cfg := s.cfg
	if cfg.SMTPUser == "" || cfg.SMTPPass == "" {
		return errSMTPNotConfigured
	}
	to := cfg.ToEmail
	if to == "" {
		to = cfg.SMTPUser
	}

	// Header values come from the form; strip line breaks.
	name := strings.NewReplacer("\r", " ", "\n", " ").Replace(msg.Name)
	replyTo := (&mail.Address{Name: name, Address: msg.Email}).String()

	body := fmt.Sprintf(`
New contact form submission from your portfolio:

Name: %s
Email: %s
Message:
%s

---
Sent from your portfolio contact form
`, name, msg.Email, msg.Message)

	raw := []byte("To: " + to + "\r\n" +
		"Subject: Portfolio Contact: " + name + "\r\n" +
		"From: " + cfg.SMTPUser + "\r\n" +
		"Reply-To: " + replyTo + "\r\n" +
		"\r\n" +
		body + "\r\n")

	auth := smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPHost)
	if err := sendMail(cfg.SMTPHost+":"+cfg.SMTPPort, auth, cfg.SMTPUser, []string{to}, raw); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
