package main

import (
	"fmt"
	"net/http"
	"os"
	"time"
)

// Cliente de inundação para validar o gateway na mão:
// dispara N requisições seguidas e mostra quando o 403 começa.
func main() {
	target := "http://localhost:8080/showTela"
	if len(os.Args) > 1 {
		target = os.Args[1]
	}

	client := &http.Client{Timeout: 2 * time.Second}
	for i := 1; i <= 20; i++ {
		resp, err := client.Get(target)
		if err != nil {
			fmt.Printf("req %02d: erro: %s\n", i, err)
			continue
		}
		resp.Body.Close()
		fmt.Printf("req %02d: %s (Retry-After=%s)\n", i, resp.Status, resp.Header.Get("Retry-After"))
	}
}
