package engine

// DefaultObfuscationKey is the keystream used when Config.ObfuscationKey is
// empty. It is public and provides no confidentiality: obfuscated files only
// stop casual editing of profile data. Encrypt values before saving them if
// they must stay secret.
const DefaultObfuscationKey = "P,A*M+0U@,G5U-m-=h/nS}+Y@3Ln$}{JP.z1dcg:JPCu3#GxMM"

// Obfuscate XORs every byte of data with key[i % len(key)]. The transform is
// its own inverse, so the same call both hides and reveals stored text.
func Obfuscate(data, key []byte) []byte {
	out := make([]byte, len(data))
	if len(key) == 0 {
		copy(out, data)
		return out
	}
	for i, b := range data {
		out[i] = b ^ key[i%len(key)]
	}
	return out
}
