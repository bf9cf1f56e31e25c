package main

import "github.com/frostwebdev-dotcom/ai-chatbot-agent/cmd"

func main() {
	cmd.Execute()
}
