package adapters

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/patrick-commits/dark-site-metering/common"
)

const fileServersConfigPath = "/api/files/v4.0/config/file-servers"

// fileServiceAdapter reads the file-service generation: a config listing
// followed by one stats call per file server. Scalar capacity fields live next
// to time-series arrays where only the latest sample matters.
type fileServiceAdapter struct {
	client *Client
}

// NewFileServiceAdapter creates a new file-service adapter instance
func NewFileServiceAdapter(client *Client) (*fileServiceAdapter, error) {
	if client.IsInterfaceNil() {
		return nil, errNilClient
	}

	return &fileServiceAdapter{client: client}, nil
}

// Name returns the adapter's generation name
func (a *fileServiceAdapter) Name() string {
	return string(GenFileService)
}

// Kinds returns the resource kinds this adapter can populate
func (a *fileServiceAdapter) Kinds() []common.ResourceKind {
	return []common.ResourceKind{common.KindFileServer}
}

// Fetch retrieves the file-server records. A stats call failing after the
// config listing succeeded surfaces the records obtained so far wrapped with
// ErrPartialDrain.
func (a *fileServiceAdapter) Fetch(ctx context.Context, cred *common.Credential, kind common.ResourceKind) ([]Record, error) {
	if kind != common.KindFileServer {
		return nil, fmt.Errorf("%w: %s does not serve kind %s", errUnsupportedKind, a.Name(), kind)
	}

	body, err := a.client.Get(ctx, cred, fileServersConfigPath)
	if err != nil {
		return nil, err
	}

	var records []Record
	servers := gjson.GetBytes(body, "data").Array()
	for _, fs := range servers {
		uuid := fs.Get("extId").String()
		name := fs.Get("name").String()

		statsPath := fmt.Sprintf("/api/files/v4.0/stats/file-servers/%s", uuid)
		statsBody, err := a.client.Get(ctx, cred, statsPath)
		if err != nil {
			if len(records) == 0 {
				return nil, err
			}
			return records, fmt.Errorf("%w: stats for file server %s: %w", common.ErrPartialDrain, name, err)
		}

		stats := gjson.GetBytes(statsBody, "data")

		emit := func(metric string, value gjson.Result) {
			if !value.Exists() {
				return
			}
			records = append(records, Record{
				Kind:   common.KindFileServer,
				UUID:   uuid,
				Name:   name,
				Metric: metric,
				Value:  value.String(),
				Source: GenFileService,
			})
		}

		emit("storageCapacityBytes", stats.Get("storageCapacityBytes"))
		emit("usedCapacityBytes", stats.Get("usedCapacityBytes"))
		emit("availableCapacityBytes", stats.Get("availableCapacityBytes"))

		// numberOfFiles and numberOfConnections arrive as sample arrays
		files := stats.Get("numberOfFiles").Array()
		if len(files) > 0 {
			emit("numberOfFiles", files[len(files)-1].Get("value"))
		}
		connections := stats.Get("numberOfConnections").Array()
		if len(connections) > 0 {
			emit("numberOfConnections", connections[len(connections)-1].Get("value"))
		}
	}

	log.Debug("fetched file servers", "servers", len(servers), "records", len(records))

	return records, nil
}

// IsInterfaceNil returns true if the value under the interface is nil
func (a *fileServiceAdapter) IsInterfaceNil() bool {
	return a == nil
}
