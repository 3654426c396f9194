package ipc

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"resty.dev/v3"
)

func newClient() *resty.Client {
	path := SocketPath()

	client := resty.NewWithClient(&http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", path)
			},
		},
	})

	client.SetBaseURL("http://smoothframes")
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("Accept", "application/json")
	client.SetHeader("User-Agent", "smoothframes")
	return client
}

func SendCommand(cmd Command) (*Response, error) {
	client := newClient()
	defer client.Close()

	result := Response{}

	response, err := client.R().SetBody(cmd).SetResult(&result).Post("/command")
	if err != nil {
		return nil, err
	}

	if response.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("error sending command: %s", response.Status())
	}

	return &result, err
}

// SendStatus asks the daemon for its status. An error usually means no daemon
// is running.
func SendStatus() (*StatusResponse, error) {
	client := newClient()
	defer client.Close()

	result := StatusResponse{}

	response, err := client.R().SetResult(&result).Get("/status")
	if err != nil {
		return nil, err
	}

	if response.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("error fetching status: %s", response.Status())
	}

	return &result, nil
}

func SendStop() error {
	_, err := SendCommand(Command{Type: CommandStop})
	return err
}

func SendNext() error {
	_, err := SendCommand(Command{Type: CommandNext})
	return err
}

func SendLoad(images []string) error {
	_, err := SendCommand(Command{Type: CommandLoad, Args: images})
	return err
}
