package dictionary

// Trie is a byte-keyed prefix set. Each node tracks how many stored phrases
// pass through it so prefix counts are answered in O(len(prefix)).
type Trie struct {
	root *trieNode
	size int
}

type trieNode struct {
	children map[byte]*trieNode
	terminal bool
	count    int
}

// NewTrie returns an empty trie.
func NewTrie() *Trie {
	return &Trie{root: &trieNode{}}
}

// Insert adds phrase. Re-inserting an existing phrase is a no-op.
func (t *Trie) Insert(phrase string) {
	if t.Contains(phrase) {
		return
	}
	node := t.root
	node.count++
	for i := 0; i < len(phrase); i++ {
		next, ok := node.children[phrase[i]]
		if !ok {
			if node.children == nil {
				node.children = make(map[byte]*trieNode)
			}
			next = &trieNode{}
			node.children[phrase[i]] = next
		}
		next.count++
		node = next
	}
	node.terminal = true
	t.size++
}

// PrefixCount reports how many stored phrases start with prefix.
func (t *Trie) PrefixCount(prefix string) int {
	node := t.find(prefix)
	if node == nil {
		return 0
	}
	return node.count
}

// Contains reports whether phrase was inserted exactly.
func (t *Trie) Contains(phrase string) bool {
	node := t.find(phrase)
	return node != nil && node.terminal
}

// Len returns the number of stored phrases.
func (t *Trie) Len() int {
	return t.size
}

func (t *Trie) find(prefix string) *trieNode {
	node := t.root
	for i := 0; i < len(prefix); i++ {
		next, ok := node.children[prefix[i]]
		if !ok {
			return nil
		}
		node = next
	}
	return node
}
