package auth

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

func readToken(prompt string, r io.Reader) (string, error) {
	fmt.Println(prompt)
	fmt.Print("> ")

	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("reading token: %w", err)
		}
		return "", errors.New("no input received")
	}

	token := strings.TrimSpace(scanner.Text())
	if token == "" {
		return "", errors.New("token cannot be empty")
	}

	return token, nil
}
