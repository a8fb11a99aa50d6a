package plugin

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/flarebyte/codepen-export/internal/buildinfo"
	"github.com/flarebyte/codepen-export/internal/update"
)

func checkForUpdates(ctx context.Context, _ Request, deps Deps) (Result, error) {
	u := deps.Config.Update
	if !u.Enabled {
		return Nothing, nil
	}
	if deps.Store == nil {
		return Result{}, errors.New("no preference store")
	}
	client := deps.HTTP
	if client == nil {
		client = defaultHTTPClient(u.TimeoutMs)
	}
	c := &update.Checker{
		Store:          deps.Store,
		Client:         client,
		Now:            deps.Now,
		VersionInfoURL: u.VersionInfoURL,
		DownloadURL:    u.DownloadURL,
		UserAgent:      u.UserAgent,
		Interval:       time.Duration(u.IntervalSeconds) * time.Second,
		Current:        buildinfo.CurrentScriptVersion(),
	}
	n, err := c.Check(ctx)
	if err != nil {
		return Result{}, err
	}
	if n == nil {
		return Nothing, nil
	}
	deps.Log.Sugar().Infof("update available: %s -> %s", n.FromVersion, n.ToVersion)
	return Value(n), nil
}

func defaultHTTPClient(timeoutMs int) *http.Client {
	if timeoutMs <= 0 {
		return &http.Client{}
	}
	return &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond}
}

func init() {
	Register(OpCheckForUpdates, Operation{Handler: checkForUpdates, Policy: Swallow})
}
