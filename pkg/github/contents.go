package github

import (
	"context"
	"fmt"

	gh "github.com/google/go-github/v57/github"
)

// FetchFileContent downloads one file at the given ref and decodes the
// base64 blob the provider delivers it as.
func FetchFileContent(ctx context.Context, client *gh.Client, fullName, path, ref string) (string, error) {
	owner, name, err := splitFullName(fullName)
	if err != nil {
		return "", err
	}
	opts := &gh.RepositoryContentGetOptions{Ref: ref}
	fileContent, _, _, err := client.Repositories.GetContents(ctx, owner, name, path, opts)
	if err != nil {
		return "", wrapAPIError("fetch contents", err)
	}
	if fileContent == nil {
		return "", fmt.Errorf("fetch contents: %s is a directory, not a file", path)
	}
	content, err := fileContent.GetContent()
	if err != nil {
		return "", fmt.Errorf("decode contents of %s: %w", path, err)
	}
	return content, nil
}
