package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type terminalReply struct {
	Output   string
	Redirect string
}

var lostCommands = map[string]terminalReply{
	"help": {Output: "Available commands: help, ls, cat 404.txt, cd home, sudo find page"},
	"ls":   {Output: "home/  projects/  skills/  404.txt"},
	"cat 404.txt": {Output: "ERROR 404: Page not found.\n" +
		"Last seen: somewhere between /dev/null and the void.\n" +
		"If found, please return to the nearest <a> tag."},
	"cd home":        {Redirect: "/"},
	"go home":        {Redirect: "/"},
	"sudo find page": {Output: "Permission denied. Nice try."},
}

// runLostCommand looks up a mini-terminal command. Matching ignores case and
// surrounding space; the normalised command is returned for echoing.
func runLostCommand(input string) (string, terminalReply) {
	cmd := strings.ToLower(strings.TrimSpace(input))
	if r, ok := lostCommands[cmd]; ok {
		return cmd, r
	}
	return cmd, terminalReply{Output: "command not found: " + cmd + `. Type "help" for available commands.`}
}

func lostTerminal(c *gin.Context) {
	cmd, reply := runLostCommand(c.PostForm("command"))
	if cmd == "" {
		c.Status(http.StatusNoContent)
		return
	}
	if reply.Redirect != "" {
		c.Header("HX-Redirect", reply.Redirect)
		c.Status(http.StatusOK)
		return
	}
	c.HTML(http.StatusOK, "terminal-entry.html", gin.H{
		"command": cmd,
		"output":  reply.Output,
	})
}

func notFound(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	c.HTML(http.StatusNotFound, "404.html", gin.H{
		"path":  c.Request.URL.Path,
		"theme": themeFromCookie(c),
	})
}
