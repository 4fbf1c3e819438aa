package token

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// PersistToEnvFile returns a PersistFunc that rewrites PLATFORM_ACCESS_TOKEN and
// PLATFORM_REFRESH_TOKEN in the given .env-style file, preserving every other line.
// joho/godotenv only reads env files, so writing one back is a small stdlib-only helper
// rather than a third-party dependency.
func PersistToEnvFile(path string) PersistFunc {
	return func(creds Credentials) error {
		lines, err := readLines(path)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("token: read env file: %w", err)
		}

		lines = setEnvLine(lines, "PLATFORM_ACCESS_TOKEN", creds.AccessToken)
		lines = setEnvLine(lines, "PLATFORM_REFRESH_TOKEN", creds.RefreshToken)

		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("token: open env file for write: %w", err)
		}
		defer f.Close()

		w := bufio.NewWriter(f)
		for _, l := range lines {
			if _, err := w.WriteString(l + "\n"); err != nil {
				return fmt.Errorf("token: write env file: %w", err)
			}
		}
		return w.Flush()
	}
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

func setEnvLine(lines []string, key, value string) []string {
	entry := fmt.Sprintf("%s=%s", key, value)
	for i, l := range lines {
		if strings.HasPrefix(l, key+"=") {
			lines[i] = entry
			return lines
		}
	}
	return append(lines, entry)
}
