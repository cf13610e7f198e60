package auth

import (
	"hash/crc32"
	"sort"
	"strconv"
	"sync"
)

// HashRing 把 token 缓存键固定映射到某个鉴权节点的一致性哈希环。
// 节点增减时只迁移一部分 key，缓存不会整体失效。
type HashRing struct {
	mu       sync.RWMutex
	hashFn   func(data []byte) uint32
	replicas int
	virtual  []int          // 排好序的虚拟节点哈希
	owner    map[int]string // 虚拟节点哈希 -> 真实节点
	members  map[string]struct{}
}

// NewHashRing 创建哈希环。nodes 为空时补一个默认节点，保证环永远可用。
func NewHashRing(nodes []string, replicas int) *HashRing {
	if replicas <= 0 {
		replicas = 50
	}
	if len(nodes) == 0 {
		nodes = []string{"auth-node-default"}
	}
	r := &HashRing{
		hashFn:   crc32.ChecksumIEEE,
		replicas: replicas,
		owner:    make(map[int]string),
		members:  make(map[string]struct{}),
	}
	r.Add(nodes...)
	return r
}

// Add 加入节点，已存在的跳过
func (r *HashRing) Add(nodes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, node := range nodes {
		if _, ok := r.members[node]; ok {
			continue
		}
		r.members[node] = struct{}{}
		for i := 0; i < r.replicas; i++ {
			h := int(r.hashFn([]byte(node + "@" + strconv.Itoa(i))))
			r.virtual = append(r.virtual, h)
			r.owner[h] = node
		}
	}
	sort.Ints(r.virtual)
}

// Pick 返回 key 归属的节点，环上顺时针找第一个虚拟节点
func (r *HashRing) Pick(key string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.virtual) == 0 {
		return ""
	}
	h := int(r.hashFn([]byte(key)))
	idx := sort.Search(len(r.virtual), func(i int) bool { return r.virtual[i] >= h })
	if idx == len(r.virtual) {
		idx = 0
	}
	return r.owner[r.virtual[idx]]
}
