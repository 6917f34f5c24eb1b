package banner

import "fmt"

const banner = `
 ____  _   _  ___  _   _ _____ ____ ___ __  __
|  _ \| | | |/ _ \| \ | | ____/ ___|_ _|  \/  |
| |_) | |_| | | | |  \| |  _| \___ \| || |\/| |
|  __/|  _  | |_| | |\  | |___ ___) | || |  | |
|_|   |_| |_|\___/|_| \_|_____|____/___|_|  |_|
`

// Print prints the startup banner with runtime info.
func Print(addr, dbPath, version string) {
	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", addr)
	fmt.Printf("DB Path:  %s\n", dbPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("GET  /v1/threads - List threads (newest activity first)")
	fmt.Println("POST /v1/threads - Create a thread (JSON: participants, title)")
	fmt.Println("POST /v1/threads/{id}/messages - Send a message (JSON: text)")
	fmt.Println("POST /v1/poll - Run one scheduler tick")
	fmt.Println("GET  /v1/contacts - List contacts")
	fmt.Println("\n== Examples ===================================================")
	fmt.Printf("curl -X POST 'http://localhost%s/v1/poll' -d '{\"trigger\":\"main-chat\",\"force\":true}'\n", addr)
	fmt.Printf("curl 'http://localhost%s/v1/threads'\n", addr)
}
