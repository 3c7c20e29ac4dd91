package stores

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"geoloc/internal/logger"
)

// Upserter：导入目标（Repository 实现）
type Upserter interface {
	Upsert(ctx context.Context, s Store) error
}

// 文档注释：解析门店目录
// 背景：支持 JSON 数组与逐行 JSON 两种格式，按首个非空白字符判定。
// 约束：单行/单条非法时记录为错误并继续；ID 与名称去除首尾空白后不得为空，坐标需在合法范围内。
// 返回：合法门店与逐条错误（行号从 1 开始，数组格式为元素序号）。
func Decode(r io.Reader) ([]Store, []error) {
	br := bufio.NewReader(r)
	head, err := peekNonSpace(br)
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, []error{err}
	}
	var out []Store
	var errs []error
	accept := func(i int, s Store) {
		s.ID = strings.TrimSpace(s.ID)
		s.Name = strings.TrimSpace(s.Name)
		switch {
		case s.ID == "" || s.Name == "":
			errs = append(errs, fmt.Errorf("record %d: id and name required", i))
		case !s.Location.Valid():
			errs = append(errs, fmt.Errorf("record %d: coordinate out of range", i))
		default:
			out = append(out, s)
		}
	}
	if head == '[' {
		var raw []json.RawMessage
		if err := json.NewDecoder(br).Decode(&raw); err != nil {
			return nil, []error{fmt.Errorf("decode array: %w", err)}
		}
		for i, m := range raw {
			var s Store
			if err := json.Unmarshal(m, &s); err != nil {
				errs = append(errs, fmt.Errorf("record %d: %w", i+1, err))
				continue
			}
			accept(i+1, s)
		}
		return out, errs
	}
	sc := bufio.NewScanner(br)
	sc.Buffer(make([]byte, 1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var s Store
		if err := json.Unmarshal(line, &s); err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", n, err))
			continue
		}
		accept(n, s)
	}
	if err := sc.Err(); err != nil {
		errs = append(errs, err)
	}
	return out, errs
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if b != ' ' && b != '\t' && b != '\n' && b != '\r' {
			return b, br.UnreadByte()
		}
	}
}

// 文档注释：并发写入门店
// 参数：workers<=0 按 4 处理；wait 在每次写入前调用，用于限流，返回错误时停止派发。
// 返回：成功条数与首个写入错误（其余错误仅记录日志）。
func Import(ctx context.Context, dst Upserter, ss []Store, workers int, wait func(context.Context) error) (int, error) {
	if workers <= 0 {
		workers = 4
	}
	jobs := make(chan Store, workers*4)
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		ok    int
		first error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range jobs {
				if err := dst.Upsert(ctx, s); err != nil {
					logger.L().Error("store_import_error", "id", s.ID, "err", err)
					mu.Lock()
					if first == nil {
						first = err
					}
					mu.Unlock()
					continue
				}
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	var stopErr error
	for _, s := range ss {
		if wait != nil {
			if err := wait(ctx); err != nil {
				stopErr = err
				break
			}
		}
		if err := ctx.Err(); err != nil {
			stopErr = err
			break
		}
		jobs <- s
	}
	close(jobs)
	wg.Wait()
	if first == nil {
		first = stopErr
	}
	return ok, first
}
