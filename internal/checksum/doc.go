// Package checksum computes the content checksum used to identify ROM images.
//
// The checksum is MD5 rendered as uppercase hex. A .zip archive holding
// exactly one file is hashed over that file's decompressed content, so a
// zipped dump and its raw counterpart produce the same checksum.
package checksum
